package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/supervisor"
)

var startAgentCount int

var startCmd = &cobra.Command{
	Use:   "start [path]",
	Short: "launch a new session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startAgentCount, "n", "n", 0, "override configured agent count")
}

func runStart(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	n := cfg.NumAgents
	if startAgentCount > 0 {
		n = startAgentCount
	}

	sup, err := newSupervisor(path)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	assignments := defaultAssignments(n, cfg.Roles)
	specs := defaultLaunchSpecs(path, assignments)

	handle, err := sup.StartSession(context.Background(), path, assignments, specs)
	if err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			return withCode(ExitConfigError, err)
		}
		if errors.Is(err, supervisor.ErrReadyTimeout) {
			return withCode(ExitAgentInitFailed, err)
		}
		return withCode(ExitAgentInitFailed, err)
	}

	fmt.Printf("started session %s (%d agents) for %s\n", handle.Name, handle.NumAgents, handle.ProjectPath)
	return nil
}

// defaultAssignments builds n role assignments cycling through
// cfg.Roles, all in the main repository (no worktree).
func defaultAssignments(n int, roles []string) []supervisor.RoleAssignment {
	out := make([]supervisor.RoleAssignment, n)
	for i := 0; i < n; i++ {
		role := roles[i%len(roles)]
		out[i] = supervisor.RoleAssignment{
			AgentID:     supervisor.AgentID(i),
			RoleTag:     role,
			DisplayName: fmt.Sprintf("expert%d", i),
		}
	}
	return out
}

// defaultLaunchSpecs builds a LaunchSpec per assignment, pointing at
// the project's rendered per-agent system prompt file (spec.md §6's
// filesystem layout); rendering that file is out of core.
func defaultLaunchSpecs(projectPath string, assignments []supervisor.RoleAssignment) map[supervisor.AgentID]supervisor.LaunchSpec {
	out := make(map[supervisor.AgentID]supervisor.LaunchSpec, len(assignments))
	for _, ra := range assignments {
		out[ra.AgentID] = supervisor.LaunchSpec{
			WorkingDir:       projectPath,
			SystemPromptFile: filepath.Join(projectPath, ".macot", "system_prompt", fmt.Sprintf("expert%d.md", ra.AgentID)),
			Command:          "claude",
		}
	}
	return out
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/manifest"
	"github.com/marcus/macot/internal/supervisor"
)

var (
	resetSession     string
	resetKeepHistory bool
	resetFull        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset agent <id_or_name>",
	Short: "reset a single agent",
	Args:  cobra.MinimumNArgs(1),
}

var resetAgentCmd = &cobra.Command{
	Use:   "agent <id_or_name>",
	Short: "reset a single agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetAgent,
}

func init() {
	resetCmd.AddCommand(resetAgentCmd)
	resetAgentCmd.Flags().StringVar(&resetSession, "session", "", "session name (auto-resolved when unique)")
	resetAgentCmd.Flags().BoolVar(&resetKeepHistory, "keep-history", false, "standard reset: clear context, resend instructions")
	resetAgentCmd.Flags().BoolVar(&resetFull, "full", false, "full reset: exit + relaunch the agent process")
}

func runResetAgent(cmd *cobra.Command, args []string) error {
	driver := supervisor.NewDriver(cfg.SessionPrefix)
	ctx := context.Background()

	session, err := resolveSession(ctx, driver, sessionArgs())
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}

	projectPath, err := driver.GetEnv(ctx, session, "MACOT_PROJECT_PATH")
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}

	entry, err := findManifestEntry(projectPath, args[0])
	if err != nil {
		return withCode(ExitTaskAssignFailed, err)
	}

	pane := supervisor.PaneKey(session, supervisor.AgentID(entry.ExpertID))

	if resetFull {
		if err := driver.SendExit(ctx, pane); err != nil {
			return withCode(ExitTaskAssignFailed, err)
		}
		spec := supervisor.LaunchSpec{
			WorkingDir: projectPath,
			Command:    "claude",
		}
		if err := driver.SendKeysWithEnter(ctx, pane, spec.Command); err != nil {
			return withCode(ExitTaskAssignFailed, err)
		}
		fmt.Printf("agent %d: full reset issued (exit + relaunch)\n", entry.ExpertID)
		return nil
	}

	// Standard reset shares the relaunch primitive's "clear and resend"
	// shape without restarting the process: clear the pane, then
	// resend the rendered system prompt text.
	if err := driver.SendKeys(ctx, pane, "C-l"); err != nil {
		return withCode(ExitTaskAssignFailed, err)
	}
	promptPath := filepath.Join(projectPath, ".macot", "system_prompt", fmt.Sprintf("expert%d.md", entry.ExpertID))
	prompt, err := os.ReadFile(promptPath)
	if err != nil {
		return withCode(ExitTaskAssignFailed, fmt.Errorf("read system prompt: %w", err))
	}
	if err := driver.SendKeysWithEnter(ctx, pane, string(prompt)); err != nil {
		return withCode(ExitTaskAssignFailed, err)
	}
	fmt.Printf("agent %d: standard reset issued\n", entry.ExpertID)
	return nil
}

func sessionArgs() []string {
	if resetSession == "" {
		return nil
	}
	return []string{resetSession}
}

func findManifestEntry(projectPath, idOrName string) (manifest.Entry, error) {
	entries, err := manifest.Read(projectPath)
	if err != nil {
		return manifest.Entry{}, err
	}

	if id, err := strconv.Atoi(idOrName); err == nil {
		for _, e := range entries {
			if e.ExpertID == id {
				return e, nil
			}
		}
		return manifest.Entry{}, fmt.Errorf("no agent with id %d", id)
	}
	for _, e := range entries {
		if e.Name == idOrName {
			return e, nil
		}
	}
	return manifest.Entry{}, fmt.Errorf("no agent named %q", idOrName)
}

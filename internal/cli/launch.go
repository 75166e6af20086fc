package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/executor"
	"github.com/marcus/macot/internal/preview"
	"github.com/marcus/macot/internal/router"
	"github.com/marcus/macot/internal/supervisor"
	"github.com/marcus/macot/internal/tower"
)

var launchAgentCount int

var launchCmd = &cobra.Command{
	Use:   "launch [path]",
	Short: "start a session and enter the status view in one step",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLaunch,
}

func init() {
	launchCmd.Flags().IntVarP(&launchAgentCount, "n", "n", 0, "override configured agent count")
}

// runLaunch is start followed immediately by tower: the session is
// created synchronously (StartSession already waits for readiness),
// then the control loop takes over to show live status as agents
// begin working.
func runLaunch(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	n := cfg.NumAgents
	if launchAgentCount > 0 {
		n = launchAgentCount
	}

	sup, err := newSupervisor(path)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	assignments := defaultAssignments(n, cfg.Roles)
	specs := defaultLaunchSpecs(path, assignments)

	ctx := context.Background()
	handle, err := sup.StartSession(ctx, path, assignments, specs)
	if err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			return withCode(ExitConfigError, err)
		}
		return withCode(ExitAgentInitFailed, err)
	}

	queueDir := router.QueueRootMessagesDir(handle.ProjectPath)
	execCfg := executor.DefaultConfig(cfg.SpecsDir)
	execCfg.PollDelay = cfg.Timeouts.PollDelay
	execCfg.ExitWait = cfg.Timeouts.ExitWait
	execCfg.ReadyTimeout = cfg.Timeouts.ReadyRelaunch

	routerCfg := router.Config{
		PollInterval: cfg.Router.PollInterval,
		MaxAttempts:  cfg.Router.MaxAttempts,
		MessageTTL:   cfg.Router.MessageTTL,
	}
	previewCfg := preview.Config{
		PollInterval:  cfg.Preview.PollInterval,
		InputDebounce: cfg.Preview.InputDebounce,
	}
	m := tower.New(sup, handle.Name, queueDir, execCfg, routerCfg, previewCfg, log)
	defer m.Close()

	if agents := sup.Registry().All(); len(agents) > 0 {
		m.Focus(agents[0].ID)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return withCode(ExitUnknown, fmt.Errorf("tower: %w", err))
	}
	return nil
}

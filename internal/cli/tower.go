package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/executor"
	"github.com/marcus/macot/internal/manifest"
	"github.com/marcus/macot/internal/preview"
	"github.com/marcus/macot/internal/router"
	"github.com/marcus/macot/internal/supervisor"
	"github.com/marcus/macot/internal/tower"
)

var towerCmd = &cobra.Command{
	Use:   "tower [session]",
	Short: "enter the interactive status view",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTower,
}

func runTower(cmd *cobra.Command, args []string) error {
	driver := supervisor.NewDriver(cfg.SessionPrefix)
	ctx := context.Background()

	session, err := resolveSession(ctx, driver, args)
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}

	projectPath, err := driver.GetEnv(ctx, session, "MACOT_PROJECT_PATH")
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}

	m, err := buildTowerModel(ctx, session, projectPath)
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return withCode(ExitUnknown, fmt.Errorf("tower: %w", err))
	}
	return nil
}

// buildTowerModel reattaches to an already-running session's agents
// from its manifest and wires the control loop around it.
func buildTowerModel(ctx context.Context, session, projectPath string) (*tower.Model, error) {
	sup, err := newSupervisor(projectPath)
	if err != nil {
		return nil, err
	}
	entries, err := manifest.Read(projectPath)
	if err != nil {
		return nil, err
	}
	sup.Attach(ctx, session, toManifestEntries(entries))
	sup.Refresh(ctx)

	queueDir := router.QueueRootMessagesDir(projectPath)
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
	m := tower.New(sup, session, queueDir, execCfg, routerCfg, previewCfg, log)

	if agents := sup.Registry().All(); len(agents) > 0 {
		m.Focus(agents[0].ID)
	}
	return m, nil
}

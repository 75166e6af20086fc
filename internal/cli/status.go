package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/manifest"
	"github.com/marcus/macot/internal/supervisor"
)

var statusCmd = &cobra.Command{
	Use:   "status [session]",
	Short: "print per-agent state table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	sup, err := newSupervisor(projectPath)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	entries, err := manifest.Read(projectPath)
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}
	sup.Attach(ctx, session, toManifestEntries(entries))

	numStr, _ := driver.GetEnv(ctx, session, "MACOT_NUM_EXPERTS")
	fmt.Printf("session: %s\n", session)
	fmt.Printf("experts: %s\n", numStr)

	sup.Refresh(ctx)
	for _, a := range sup.Registry().All() {
		fmt.Printf("%d\t%s\t%s\t%s\n", a.ID, a.DisplayName, a.RoleTag, a.State)
	}
	return nil
}

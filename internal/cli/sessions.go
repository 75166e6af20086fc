package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/supervisor"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "list all running sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	driver := supervisor.NewDriver(cfg.SessionPrefix)
	ctx := context.Background()

	sessions, err := driver.ListManagedSessions(ctx)
	if err != nil {
		return withCode(ExitUnknown, err)
	}
	if len(sessions) == 0 {
		fmt.Println("no managed sessions running")
		return nil
	}
	for _, s := range sessions {
		projectPath, err := driver.GetEnv(ctx, s, "MACOT_PROJECT_PATH")
		if err != nil {
			projectPath = "(unknown)"
		}
		fmt.Printf("%s\t%s\n", s, projectPath)
	}
	return nil
}

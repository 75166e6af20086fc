package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/manifest"
	"github.com/marcus/macot/internal/supervisor"
)

var (
	downForce   bool
	downCleanup bool
)

var downCmd = &cobra.Command{
	Use:   "down [session]",
	Short: "graceful shutdown of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

func init() {
	downCmd.Flags().BoolVar(&downForce, "force", false, "skip the graceful wait")
	downCmd.Flags().BoolVar(&downCleanup, "cleanup", false, "remove the session's persisted context files")
}

func runDown(cmd *cobra.Command, args []string) error {
	driver := supervisor.NewDriver(cfg.SessionPrefix)
	ctx := context.Background()

	session, err := resolveSession(ctx, driver, args)
	if err != nil {
		return withCode(ExitSessionNotFound, err)
	}

	sup, err := newSupervisor(".")
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	// Register the session's agents so the graceful path can send each
	// one its exit sentinel.
	if projectPath, err := driver.GetEnv(ctx, session, "MACOT_PROJECT_PATH"); err == nil {
		if entries, err := manifest.Read(projectPath); err == nil {
			sup.Attach(ctx, session, toManifestEntries(entries))
		}
	}
	if err := sup.Shutdown(ctx, session, downForce, downCleanup); err != nil {
		return withCode(ExitUnknown, err)
	}
	fmt.Printf("session %s shut down\n", session)
	return nil
}

// resolveSession returns args[0] verbatim if given, else the unique
// managed session if exactly one is running (spec.md §6: "session
// auto-resolved when unique").
func resolveSession(ctx context.Context, driver *supervisor.Driver, args []string) (string, error) {
	if len(args) == 1 {
		if !driver.HasSession(ctx, args[0]) {
			return "", fmt.Errorf("%w: %s", supervisor.ErrSessionNotFound, args[0])
		}
		return args[0], nil
	}
	sessions, err := driver.ListManagedSessions(ctx)
	if err != nil {
		return "", err
	}
	switch len(sessions) {
	case 0:
		return "", fmt.Errorf("%w: no managed sessions running", supervisor.ErrSessionNotFound)
	case 1:
		return sessions[0], nil
	default:
		return "", fmt.Errorf("%w: multiple sessions running, specify one: %v", supervisor.ErrSessionNotFound, sessions)
	}
}

package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/marcus/macot/internal/manifest"
	"github.com/marcus/macot/internal/supervisor"
)

// newSupervisor wires a Supervisor for projectPath using the loaded
// config's timeouts and session prefix.
func newSupervisor(projectPath string) (*supervisor.Supervisor, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	driver := supervisor.NewDriver(cfg.SessionPrefix)
	scfg := supervisor.Config{
		ReadyTimeout:            cfg.Timeouts.ReadyLaunch,
		RelaunchReadyTimeout:    cfg.Timeouts.ReadyRelaunch,
		GracefulShutdownTimeout: cfg.Timeouts.GracefulShutdown,
		PollInterval:            200 * time.Millisecond,
	}
	statusDir := filepath.Join(absPath, ".macot", "status")
	return supervisor.New(driver, scfg, statusDir, manifest.NewWriter()), nil
}

// toManifestEntries adapts manifest.Entry values (JSON-shaped) into the
// ManifestEntry shape internal/supervisor.Attach accepts, without
// internal/supervisor importing internal/manifest.
func toManifestEntries(entries []manifest.Entry) []supervisor.ManifestEntry {
	out := make([]supervisor.ManifestEntry, len(entries))
	for i, e := range entries {
		out[i] = supervisor.ManifestEntry{
			ExpertID:     e.ExpertID,
			Name:         e.Name,
			Role:         e.Role,
			WorktreePath: e.WorktreePath,
		}
	}
	return out
}

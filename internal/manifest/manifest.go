// Package manifest writes the expert manifest: a JSON array snapshot
// of every registered agent's identity. The supervisor rewrites it when
// a session starts and after each LaunchAgent relaunch; role changes
// and worktree path changes do not rewrite it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcus/macot/internal/supervisor"
)

// Entry is one record in the manifest array.
type Entry struct {
	ExpertID     int     `json:"expert_id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	WorktreePath *string `json:"worktree_path"`
}

// Writer rewrites experts_manifest.json atomically under a project's
// .macot directory.
type Writer struct{}

// NewWriter returns a Writer. Stateless: every call takes the project
// path explicitly so it composes with any caller (supervisor, CLI).
func NewWriter() *Writer { return &Writer{} }

// Write rewrites the manifest file for projectPath from agents,
// writing to a temp file and renaming over the target so readers
// polling the file never observe a partial write.
func (w *Writer) Write(projectPath string, agents []supervisor.Agent) error {
	entries := make([]Entry, len(agents))
	for i, a := range agents {
		entries[i] = Entry{
			ExpertID:     int(a.ID),
			Name:         a.DisplayName,
			Role:         a.RoleTag,
			WorktreePath: a.WorktreePath,
		}
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Join(projectPath, ".macot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create .macot dir: %w", err)
	}
	target := filepath.Join(dir, "experts_manifest.json")
	tmp, err := os.CreateTemp(dir, "experts_manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp manifest: %w", err)
	}
	return nil
}

// Read loads the manifest array for projectPath. Used to reattach to
// an already-running session's agent identities (status, reset, the
// tower control loop) without re-registering them from scratch.
func Read(projectPath string) ([]Entry, error) {
	path := filepath.Join(projectPath, ".macot", "experts_manifest.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return entries, nil
}

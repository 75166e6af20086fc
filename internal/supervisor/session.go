package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RoleAssignment is the per-session snapshot the supervisor consumes;
// durability of the assignment itself lives outside the core (spec.md
// §3), so this is a plain value, not a persisted record.
type RoleAssignment struct {
	AgentID     AgentID
	RoleTag     string
	DisplayName string
	WorktreePath *string
}

// ManifestWriter is the narrow contract the supervisor uses to trigger
// an expert-manifest rewrite; internal/manifest implements it. Kept as
// an interface here so internal/supervisor never imports
// internal/manifest, avoiding a cycle and keeping the supervisor
// testable with a no-op stub.
type ManifestWriter interface {
	Write(projectPath string, agents []Agent) error
}

type noopManifestWriter struct{}

func (noopManifestWriter) Write(string, []Agent) error { return nil }

// LaunchSpec describes how to start one agent's process in its pane.
type LaunchSpec struct {
	WorkingDir        string
	SystemPromptFile  string
	AgentsJSONFile    string // optional; "" means omit
	Command           string // the agent binary invocation; "" means "claude"
}

// Config holds the supervisor's tunables; all have the spec's defaults.
type Config struct {
	ReadyTimeout            time.Duration // 30s at launch
	RelaunchReadyTimeout    time.Duration // 60s during feature-exec relaunch
	GracefulShutdownTimeout time.Duration // 10s
	PollInterval            time.Duration // how often callers should poll readiness
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout:            30 * time.Second,
		RelaunchReadyTimeout:    60 * time.Second,
		GracefulShutdownTimeout: 10 * time.Second,
		PollInterval:            200 * time.Millisecond,
	}
}

// SessionHandle identifies one running multiplexer session.
type SessionHandle struct {
	Name        string
	ProjectPath string
	NumAgents   int
	CreatedAt   time.Time
}

// Supervisor ties the driver, registry, and detector together and
// implements the session-level operations named in spec.md §4.1.
type Supervisor struct {
	driver   *Driver
	registry *Registry
	detector *Detector
	cfg      Config
	manifest ManifestWriter

	statusDir string
}

// New returns a Supervisor. statusDir is the project's
// .macot/status directory, passed to the Detector.
func New(driver *Driver, cfg Config, statusDir string, manifest ManifestWriter) *Supervisor {
	if manifest == nil {
		manifest = noopManifestWriter{}
	}
	return &Supervisor{
		driver:    driver,
		registry:  NewRegistry(),
		detector:  NewDetector(statusDir),
		cfg:       cfg,
		manifest:  manifest,
		statusDir: statusDir,
	}
}

// Registry exposes the shared agent registry for the router and
// control loop to read (and, for the router, to narrowly mutate
// worktree_path through Registry.SetWorktreePath).
func (s *Supervisor) Registry() *Registry { return s.registry }

// Detector exposes the state detector for the feature executor and
// preview engine's readiness checks.
func (s *Supervisor) Detector() *Detector { return s.detector }

// StartSession creates the multiplexer session and launches one agent
// per role assignment. It fails fast with ErrAlreadyRunning if the
// deterministic session name already exists.
func (s *Supervisor) StartSession(ctx context.Context, projectPath string, assignments []RoleAssignment, specs map[AgentID]LaunchSpec) (SessionHandle, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return SessionHandle{}, fmt.Errorf("resolve project path: %w", err)
	}
	session := s.driver.SessionName(absPath)

	if s.driver.HasSession(ctx, session) {
		return SessionHandle{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, session)
	}

	firstSpec, ok := specs[assignments[0].AgentID]
	if !ok {
		return SessionHandle{}, fmt.Errorf("missing launch spec for agent %d", assignments[0].AgentID)
	}
	if err := s.driver.NewSession(ctx, session, firstSpec.WorkingDir); err != nil {
		return SessionHandle{}, err
	}

	createdAt := time.Now()
	if err := s.driver.SetEnv(ctx, session, "MACOT_PROJECT_PATH", absPath); err != nil {
		s.driver.KillSession(ctx, session)
		return SessionHandle{}, err
	}
	if err := s.driver.SetEnv(ctx, session, "MACOT_NUM_EXPERTS", fmt.Sprintf("%d", len(assignments))); err != nil {
		s.driver.KillSession(ctx, session)
		return SessionHandle{}, err
	}
	if err := s.driver.SetEnv(ctx, session, "MACOT_CREATED_AT", createdAt.UTC().Format(time.RFC3339)); err != nil {
		s.driver.KillSession(ctx, session)
		return SessionHandle{}, err
	}

	for i, ra := range assignments {
		spec, ok := specs[ra.AgentID]
		if !ok {
			s.driver.KillSession(ctx, session)
			return SessionHandle{}, fmt.Errorf("missing launch spec for agent %d", ra.AgentID)
		}
		if i > 0 {
			if err := s.driver.SplitPane(ctx, session, spec.WorkingDir); err != nil {
				s.driver.KillSession(ctx, session)
				return SessionHandle{}, err
			}
		}
		pane := PaneKey(session, ra.AgentID)
		s.registry.Register(Agent{
			ID:                 ra.AgentID,
			DisplayName:        ra.DisplayName,
			RoleTag:            ra.RoleTag,
			MultiplexerSession: session,
			PaneKey:            pane,
			State:              StateLaunching,
			LastActivity:       createdAt,
			WorktreePath:       ra.WorktreePath,
		})

		if err := s.launch(ctx, pane, spec); err != nil {
			s.registry.SetState(ra.AgentID, StateError)
			return SessionHandle{}, fmt.Errorf("launch agent %d: %w", ra.AgentID, err)
		}
	}

	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	for _, ra := range assignments {
		if err := s.waitReady(ctx, ra.AgentID, deadline); err != nil {
			s.registry.SetState(ra.AgentID, StateError)
			return SessionHandle{}, err
		}
		s.registry.SetState(ra.AgentID, StateReadyIdle)
	}

	if err := s.manifest.Write(absPath, s.registry.All()); err != nil {
		return SessionHandle{}, fmt.Errorf("write manifest: %w", err)
	}

	return SessionHandle{Name: session, ProjectPath: absPath, NumAgents: len(assignments), CreatedAt: createdAt}, nil
}

func (s *Supervisor) launch(ctx context.Context, pane string, spec LaunchSpec) error {
	quote := func(p string) string { return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'" }
	cmd := spec.Command
	if cmd == "" {
		cmd = "claude"
	}
	if spec.SystemPromptFile != "" {
		cmd += ` --append-system-prompt "$(cat ` + quote(spec.SystemPromptFile) + `)"`
	}
	if spec.AgentsJSONFile != "" {
		cmd += ` --agents "$(cat ` + quote(spec.AgentsJSONFile) + `)"`
	}
	if spec.WorkingDir != "" {
		cmd = "cd " + quote(spec.WorkingDir) + " && " + cmd
	}
	return s.driver.SendKeysWithEnter(ctx, pane, cmd)
}

func (s *Supervisor) waitReady(ctx context.Context, id AgentID, deadline time.Time) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		content, err := s.driver.CapturePane(ctx, a.PaneKey)
		if err == nil && s.detector.IsReady(content) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: agent %d", ErrReadyTimeout, id)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendKeys forwards to the driver for the named agent's pane.
func (s *Supervisor) SendKeys(ctx context.Context, id AgentID, keyOrText string) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return s.driver.SendKeys(ctx, a.PaneKey, keyOrText)
}

// SendKeysWithEnter forwards to the driver for the named agent's pane.
func (s *Supervisor) SendKeysWithEnter(ctx context.Context, id AgentID, text string) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return s.driver.SendKeysWithEnter(ctx, a.PaneKey, text)
}

// SendExit sends the agent's exit sentinel.
func (s *Supervisor) SendExit(ctx context.Context, id AgentID) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	s.registry.SetState(id, StateOffline)
	return s.driver.SendExit(ctx, a.PaneKey)
}

// LaunchAgent re-runs the agent binary in its pane; the pane is
// assumed already empty (post send_exit). On success the agent's
// state becomes launching; the caller is expected to poll readiness
// (e.g. via the feature executor's RelaunchingAgent phase).
func (s *Supervisor) LaunchAgent(ctx context.Context, id AgentID, spec LaunchSpec) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	s.registry.SetState(id, StateLaunching)
	if err := s.launch(ctx, a.PaneKey, spec); err != nil {
		s.registry.SetState(id, StateError)
		return fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	if projectPath, envErr := s.driver.GetEnv(ctx, a.MultiplexerSession, "MACOT_PROJECT_PATH"); envErr == nil {
		s.manifest.Write(projectPath, s.registry.All())
	}
	return nil
}

// CapturePane returns the agent's current pane content, joined and
// stripped of color.
func (s *Supervisor) CapturePane(ctx context.Context, id AgentID) (string, error) {
	a, ok := s.registry.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return s.driver.CapturePane(ctx, a.PaneKey)
}

// CapturePaneWithEscapes is CapturePane preserving ANSI escapes.
func (s *Supervisor) CapturePaneWithEscapes(ctx context.Context, id AgentID) (string, error) {
	a, ok := s.registry.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return s.driver.CapturePaneWithEscapes(ctx, a.PaneKey)
}

// ResizePane resizes the agent's pane PTY.
func (s *Supervisor) ResizePane(ctx context.Context, id AgentID, cols, rows int) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return s.driver.ResizePane(ctx, a.PaneKey, cols, rows)
}

// ManifestEntry mirrors internal/manifest.Entry without creating an
// import cycle: Attach takes a slice of these, which callers build from
// manifest.Entry values, so internal/supervisor never imports
// internal/manifest directly.
type ManifestEntry struct {
	ExpertID     int
	Name         string
	Role         string
	WorktreePath *string
}

// Attach reconstructs the registry for an already-running session from
// its manifest entries, for commands that didn't themselves call
// StartSession (status, reset, tower reattaching to a live session).
// Agents are registered in StateLaunching and immediately reclassified
// by the following Refresh call.
func (s *Supervisor) Attach(ctx context.Context, session string, entries []ManifestEntry) {
	now := time.Now()
	for _, e := range entries {
		id := AgentID(e.ExpertID)
		pane := PaneKey(session, id)
		s.registry.Register(Agent{
			ID:                 id,
			DisplayName:        e.Name,
			RoleTag:            e.Role,
			MultiplexerSession: session,
			PaneKey:            pane,
			State:              StateLaunching,
			LastActivity:       now,
			WorktreePath:       e.WorktreePath,
		})
	}
}

// IsReady reports whether captured pane content shows the agent's
// readiness sentinel, for callers (the feature executor) that only
// need the raw detector check without a registry lookup.
func (s *Supervisor) IsReady(content string) bool {
	return s.detector.IsReady(content)
}

// State returns an agent's last-known State.
func (s *Supervisor) State(id AgentID) (State, bool) {
	a, ok := s.registry.Get(id)
	if !ok {
		return StateOffline, false
	}
	return a.State, true
}

// Refresh reclassifies every registered agent's State from a fresh
// capture, called once per control-loop tick.
func (s *Supervisor) Refresh(ctx context.Context) {
	for _, a := range s.registry.All() {
		content, err := s.driver.CapturePane(ctx, a.PaneKey)
		if err != nil {
			continue // retain last state; capture failure is non-fatal
		}
		launching := a.State == StateLaunching
		s.registry.SetState(a.ID, s.detector.Classify(a.ID, content, launching))
	}
}

// Shutdown performs a graceful (or forceful) session teardown.
func (s *Supervisor) Shutdown(ctx context.Context, session string, force, cleanup bool) error {
	// The project path lives in the session environment, so it must be
	// read before the session is killed.
	projectPath := ""
	if cleanup {
		projectPath, _ = s.driver.GetEnv(ctx, session, "MACOT_PROJECT_PATH")
	}
	if !force {
		deadline := time.Now().Add(s.cfg.GracefulShutdownTimeout)
		for _, a := range s.registry.All() {
			if a.MultiplexerSession != session {
				continue
			}
			_ = s.driver.SendExit(ctx, a.PaneKey)
		}
		for time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
			if !s.driver.HasSession(ctx, session) {
				break
			}
		}
	}
	if err := s.driver.KillSession(ctx, session); err != nil {
		return err
	}
	if cleanup && projectPath != "" {
		_ = os.RemoveAll(filepath.Join(projectPath, ".macot", "status"))
	}
	for _, a := range s.registry.All() {
		if a.MultiplexerSession == session {
			s.registry.Remove(a.ID)
		}
	}
	return nil
}

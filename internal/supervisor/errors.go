package supervisor

import "errors"

// Sentinel errors surfaced by the session supervisor and multiplexer
// driver. Callers compare with errors.Is; wrapped with %w at each site
// that adds context (session name, agent id, pane key).
var (
	// ErrAlreadyRunning is returned by StartSession when the deterministic
	// session name for a project path already exists.
	ErrAlreadyRunning = errors.New("supervisor: session already running")

	// ErrSessionNotFound is returned when a caller names a session that
	// does not exist.
	ErrSessionNotFound = errors.New("supervisor: session not found")

	// ErrReadyTimeout is returned when an agent does not reach readiness
	// within the configured timeout.
	ErrReadyTimeout = errors.New("supervisor: agent did not reach readiness in time")

	// ErrSendFailure is returned when a keystroke command failed even
	// after the single on-the-spot retry.
	ErrSendFailure = errors.New("supervisor: send-keys failed")

	// ErrCaptureFailure is returned when a capture-pane command failed.
	// Callers are expected to retain their last good capture.
	ErrCaptureFailure = errors.New("supervisor: capture-pane failed")

	// ErrUnknownAgent is returned when an agent id is not registered.
	ErrUnknownAgent = errors.New("supervisor: unknown agent id")

	// ErrLaunchFailure is returned when launching (or relaunching) the
	// agent binary in a pane failed.
	ErrLaunchFailure = errors.New("supervisor: launch_agent failed")
)

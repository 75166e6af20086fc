package supervisor

import (
	"os"
	"strconv"
	"strings"
)

// readinessSentinel is the substring that, once present in a captured
// frame, marks an agent as having finished launching and accepting
// input (spec.md §4.1 readiness protocol). Agents that run with
// elevated permissions print a permissions banner containing this
// phrase on first prompt.
const readinessSentinel = "bypass permissions"

// MarkerPending and MarkerProcessing are the two literal tokens a
// status-marker file may contain, written by the agent itself.
const (
	MarkerPending    = "pending"
	MarkerProcessing = "processing"
)

// errorPatterns drive the pane-text heuristic that supplements the
// status-marker file. Once an agent is past launching, a match on any
// of them classifies it as error before the marker is consulted; with
// no match, a missing/unreadable marker is treated as busy_executing
// (spec.md §4.1). While launching, only readinessSentinel is checked.
var errorPatterns = []string{
	"panic:",
	"traceback (most recent call last)",
	"fatal error:",
}

// Detector classifies an agent's activity state from a pane snapshot
// and its status-marker file. It holds no mutable state of its own;
// every call is a pure function of its inputs.
type Detector struct {
	// StatusDir is the directory containing one marker file per agent,
	// named after the agent id (".macot/status/expert<ID>").
	StatusDir string
}

// NewDetector returns a detector reading marker files from statusDir.
func NewDetector(statusDir string) *Detector {
	return &Detector{StatusDir: statusDir}
}

// Classify returns the agent's State given its last captured pane
// content and current registry state (used to distinguish "still
// launching" from "running").
func (d *Detector) Classify(id AgentID, paneContent string, launching bool) State {
	lower := strings.ToLower(paneContent)

	if launching {
		if strings.Contains(lower, readinessSentinel) {
			return StateReadyIdle
		}
		return StateLaunching
	}

	for _, p := range errorPatterns {
		if strings.Contains(lower, p) {
			return StateError
		}
	}

	marker, ok := d.readMarker(id)
	if !ok {
		// Missing/unreadable marker file: per spec.md §4.1, interpret
		// as busy_executing rather than guessing from pane text alone.
		return StateBusyExecuting
	}

	switch marker {
	case MarkerPending:
		return StateReadyIdle
	case MarkerProcessing:
		return StateBusyExecuting
	default:
		return StateBusyExecuting
	}
}

// IsReady reports whether paneContent shows the readiness sentinel;
// used directly by the session start and feature-executor relaunch
// polling loops, which gate a phase transition on this alone.
func (d *Detector) IsReady(paneContent string) bool {
	return strings.Contains(strings.ToLower(paneContent), readinessSentinel)
}

func (d *Detector) readMarker(id AgentID) (string, bool) {
	path := markerPath(d.StatusDir, id)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func markerPath(statusDir string, id AgentID) string {
	return statusDir + "/expert" + strconv.Itoa(int(id))
}

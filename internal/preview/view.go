// Package preview implements the bounded, scroll-aware ANSI pane
// preview engine (spec.md §4.4): change-detected capture, PTY width
// synchronization, and input-debounced polling.
package preview

import (
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/marcus/macot/internal/supervisor"
)

// PollInterval is the preview engine's default poll cadence, used by
// DefaultConfig.
const PollInterval = 250 * time.Millisecond

// InputDebounce is the default quiet period after a keystroke during
// which polling is suppressed, used by DefaultConfig.
const InputDebounce = 500 * time.Millisecond

// Config holds the preview engine's tunables, mirroring
// config.PreviewConfig.
type Config struct {
	PollInterval  time.Duration
	InputDebounce time.Duration
}

// DefaultConfig returns spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{PollInterval: PollInterval, InputDebounce: InputDebounce}
}

// Capturer is the narrow contract the preview engine needs from the
// supervisor: escape-preserving capture and resize.
type Capturer interface {
	CapturePaneWithEscapes(ctx context.Context, id supervisor.AgentID) (string, error)
	ResizePane(ctx context.Context, id supervisor.AgentID, cols, rows int) error
}

// PaneSize is a target PTY size, compared across ticks to decide
// whether panes need resizing (spec.md §4.4 P13).
type PaneSize struct {
	Width  int
	Height int
}

// View is the bounded viewport into one agent's pane content.
type View struct {
	AgentID        *supervisor.AgentID
	RawContentHash uint64
	ParsedContent  []StyledLine
	RawLineCount   int
	ScrollOffset   int
	AutoScroll     bool
	Focused        bool
	Visible        bool

	lastPreviewSize    PaneSize
	lastResizedAgentID *supervisor.AgentID
}

// NewView returns a View with auto-scroll enabled and nothing visible
// yet, matching a freshly-selected agent's initial state.
func NewView() *View {
	return &View{AutoScroll: true}
}

// Select switches the view to a new agent, resetting scroll state.
func (v *View) Select(id supervisor.AgentID) {
	v.AgentID = &id
	v.ScrollOffset = 0
	v.AutoScroll = true
	v.RawContentHash = 0
	v.ParsedContent = nil
}

// Poll asks the capturer for the selected agent's pane content and
// updates the view if the content changed. innerHeight is used to
// clamp scroll_offset and to auto-scroll to bottom, against the raw
// (unwrapped) line count — the same unit RenderLines indexes by, so
// the two never disagree about what "the bottom" means. Returns true
// if the view's content changed (caller should set needs_redraw).
func (v *View) Poll(ctx context.Context, c Capturer, innerHeight int) (bool, error) {
	if v.AgentID == nil || !v.Visible {
		return false, nil
	}
	raw, err := c.CapturePaneWithEscapes(ctx, *v.AgentID)
	if err != nil {
		// Retain previous content; missing update is "no change" per
		// spec.md §4.1 CaptureFailure semantics.
		return false, err
	}

	hash := xxhash.Sum64String(raw)
	if hash == v.RawContentHash && v.ParsedContent != nil {
		return false, nil
	}

	v.RawContentHash = hash
	v.ParsedContent = ParseANSI(raw)
	v.RawLineCount = len(v.ParsedContent)

	if v.AutoScroll {
		v.ScrollOffset = maxInt(0, v.RawLineCount-innerHeight)
	}
	v.clampScroll(innerHeight)
	return true, nil
}

// clampScroll bounds scroll_offset in [0, max(0, len(lines)-innerHeight)],
// enforced on every render per P9.
func (v *View) clampScroll(innerHeight int) {
	maxOffset := maxInt(0, len(v.ParsedContent)-innerHeight)
	if v.ScrollOffset > maxOffset {
		v.ScrollOffset = maxOffset
	}
	if v.ScrollOffset < 0 {
		v.ScrollOffset = 0
	}
}

// ScrollUp disables auto-scroll and moves the viewport up by n lines (P11).
func (v *View) ScrollUp(n, innerHeight int) {
	v.AutoScroll = false
	v.ScrollOffset -= n
	v.clampScroll(innerHeight)
}

// ScrollDown moves the viewport down by n lines; reaching the maximum
// re-enables auto-scroll.
func (v *View) ScrollDown(n, innerHeight int) {
	v.ScrollOffset += n
	v.clampScroll(innerHeight)
	if v.ScrollOffset >= maxInt(0, len(v.ParsedContent)-innerHeight) {
		v.AutoScroll = true
	}
}

// ScrollToTop implements the Home key contract: jump to top, disable auto-scroll.
func (v *View) ScrollToTop() {
	v.AutoScroll = false
	v.ScrollOffset = 0
}

// ScrollToBottom implements the End key contract: jump to bottom, enable auto-scroll.
func (v *View) ScrollToBottom(innerHeight int) {
	v.AutoScroll = true
	v.ScrollOffset = maxInt(0, len(v.ParsedContent)-innerHeight)
}

// SyncPaneSizes implements spec.md §4.4's PTY-width-synchronization
// contract (P13/E6). When the preview panel's size changed since the
// last tick, every agent's pane is resized (panes are disjoint ptys,
// so the fan-out is safe to run independently of selection). When only
// the selected agent changed (panel size steady), just that agent's
// pane is resized, so a freshly-selected agent's content reflows to
// the current geometry without re-resizing everyone else. Otherwise
// this is a no-op. One agent's resize failure never blocks another's;
// all failures are combined and returned via errors.Join.
func (v *View) SyncPaneSizes(ctx context.Context, c Capturer, agentIDs []supervisor.AgentID, width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	size := PaneSize{Width: width, Height: height}

	sizeChanged := size != v.lastPreviewSize
	var toResize []supervisor.AgentID
	switch {
	case sizeChanged:
		toResize = agentIDs
	case v.AgentID != nil && (v.lastResizedAgentID == nil || *v.lastResizedAgentID != *v.AgentID):
		toResize = []supervisor.AgentID{*v.AgentID}
	default:
		return nil
	}

	var errs []error
	for _, id := range toResize {
		if err := c.ResizePane(ctx, id, width, height); err != nil {
			errs = append(errs, err)
		}
	}

	v.lastPreviewSize = size
	if v.AgentID != nil {
		id := *v.AgentID
		v.lastResizedAgentID = &id
	}
	return errors.Join(errs...)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package preview

import (
	"context"
	"errors"
	"testing"

	"github.com/marcus/macot/internal/supervisor"
)

type fakeCapturer struct {
	content string
	err     error

	resized    []supervisor.AgentID
	resizeErrs map[supervisor.AgentID]error
}

func (f *fakeCapturer) CapturePaneWithEscapes(ctx context.Context, id supervisor.AgentID) (string, error) {
	return f.content, f.err
}

func (f *fakeCapturer) ResizePane(ctx context.Context, id supervisor.AgentID, cols, rows int) error {
	f.resized = append(f.resized, id)
	if f.resizeErrs != nil {
		return f.resizeErrs[id]
	}
	return nil
}

func TestViewPollNoOpWithoutSelection(t *testing.T) {
	v := NewView()
	changed, err := v.Poll(context.Background(), &fakeCapturer{content: "hi"}, 10)
	if err != nil || changed {
		t.Fatalf("changed=%v err=%v, want false/nil for an unselected view", changed, err)
	}
}

func TestViewPollDetectsChangeAndAutoScrolls(t *testing.T) {
	v := NewView()
	id := supervisor.AgentID(0)
	v.Select(id)
	v.Visible = true

	c := &fakeCapturer{content: "l1\nl2\nl3\nl4\nl5"}
	changed, err := v.Poll(context.Background(), c, 2)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !changed {
		t.Fatal("expected Poll to report a change on first capture")
	}
	if v.ScrollOffset != 3 {
		t.Errorf("ScrollOffset = %d, want 3 (auto-scrolled to bottom)", v.ScrollOffset)
	}

	changed, err = v.Poll(context.Background(), c, 2)
	if err != nil || changed {
		t.Fatalf("changed=%v err=%v, want false/nil for identical content", changed, err)
	}
}

func TestViewPollPropagatesCaptureError(t *testing.T) {
	v := NewView()
	id := supervisor.AgentID(0)
	v.Select(id)
	v.Visible = true

	c := &fakeCapturer{err: errors.New("capture failed")}
	changed, err := v.Poll(context.Background(), c, 10)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if changed {
		t.Error("a failed capture should not report a content change")
	}
}

func TestScrollUpDisablesAutoScroll(t *testing.T) {
	v := NewView()
	id := supervisor.AgentID(0)
	v.Select(id)
	v.Visible = true
	v.Poll(context.Background(), &fakeCapturer{content: "l1\nl2\nl3\nl4\nl5"}, 2)

	v.ScrollUp(1, 2)
	if v.AutoScroll {
		t.Error("ScrollUp should disable auto-scroll")
	}
	if v.ScrollOffset != 2 {
		t.Errorf("ScrollOffset = %d, want 2", v.ScrollOffset)
	}
}

func TestScrollDownReenablesAutoScrollAtBottom(t *testing.T) {
	v := NewView()
	id := supervisor.AgentID(0)
	v.Select(id)
	v.Visible = true
	v.Poll(context.Background(), &fakeCapturer{content: "l1\nl2\nl3\nl4\nl5"}, 2)
	v.ScrollUp(3, 2)

	v.ScrollDown(3, 2)
	if !v.AutoScroll {
		t.Error("ScrollDown reaching bottom should re-enable auto-scroll")
	}
}

func TestScrollToTopAndBottom(t *testing.T) {
	v := NewView()
	id := supervisor.AgentID(0)
	v.Select(id)
	v.Visible = true
	v.Poll(context.Background(), &fakeCapturer{content: "l1\nl2\nl3\nl4\nl5"}, 2)

	v.ScrollToTop()
	if v.AutoScroll || v.ScrollOffset != 0 {
		t.Errorf("ScrollToTop: AutoScroll=%v ScrollOffset=%d", v.AutoScroll, v.ScrollOffset)
	}

	v.ScrollToBottom(2)
	if !v.AutoScroll || v.ScrollOffset != 3 {
		t.Errorf("ScrollToBottom: AutoScroll=%v ScrollOffset=%d, want true/3", v.AutoScroll, v.ScrollOffset)
	}
}

func TestSyncPaneSizesResizesEveryAgentOnSizeChange(t *testing.T) {
	v := NewView()
	agents := []supervisor.AgentID{1, 2, 3}
	c := &fakeCapturer{}

	if err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24); err != nil {
		t.Fatalf("SyncPaneSizes: %v", err)
	}
	if len(c.resized) != 3 {
		t.Fatalf("resized = %v, want all 3 agents", c.resized)
	}
}

func TestSyncPaneSizesNoOpWhenUnchanged(t *testing.T) {
	v := NewView()
	agents := []supervisor.AgentID{1, 2}
	c := &fakeCapturer{}

	if err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24); err != nil {
		t.Fatalf("SyncPaneSizes (first): %v", err)
	}
	c.resized = nil

	if err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24); err != nil {
		t.Fatalf("SyncPaneSizes (second): %v", err)
	}
	if len(c.resized) != 0 {
		t.Fatalf("resized = %v, want no-op when size and selection are unchanged", c.resized)
	}
}

func TestSyncPaneSizesResizesOnlyNewSelectionWhenSizeSteady(t *testing.T) {
	v := NewView()
	agents := []supervisor.AgentID{1, 2, 3}
	c := &fakeCapturer{}

	if err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24); err != nil {
		t.Fatalf("SyncPaneSizes (first): %v", err)
	}
	c.resized = nil

	v.Select(supervisor.AgentID(2))
	if err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24); err != nil {
		t.Fatalf("SyncPaneSizes (after selection change): %v", err)
	}
	if len(c.resized) != 1 || c.resized[0] != supervisor.AgentID(2) {
		t.Fatalf("resized = %v, want just the newly selected agent", c.resized)
	}
}

func TestSyncPaneSizesSkipsZeroDimensions(t *testing.T) {
	v := NewView()
	c := &fakeCapturer{}

	if err := v.SyncPaneSizes(context.Background(), c, []supervisor.AgentID{1}, 0, 24); err != nil {
		t.Fatalf("SyncPaneSizes: %v", err)
	}
	if len(c.resized) != 0 {
		t.Fatalf("resized = %v, want no-op for a zero-width panel", c.resized)
	}
}

func TestSyncPaneSizesCombinesPerAgentErrorsWithoutAbortingEarly(t *testing.T) {
	v := NewView()
	agents := []supervisor.AgentID{1, 2, 3}
	failure := errors.New("resize failed")
	c := &fakeCapturer{resizeErrs: map[supervisor.AgentID]error{2: failure}}

	err := v.SyncPaneSizes(context.Background(), c, agents, 80, 24)
	if err == nil {
		t.Fatal("expected a joined error when one agent's resize fails")
	}
	if !errors.Is(err, failure) {
		t.Errorf("joined error should wrap the per-agent failure: %v", err)
	}
	if len(c.resized) != 3 {
		t.Fatalf("resized = %v, want all 3 agents attempted despite agent 2's failure", c.resized)
	}
}

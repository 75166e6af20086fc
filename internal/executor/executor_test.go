package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/macot/internal/supervisor"
)

type fakeDriver struct {
	ready      bool
	sentExit   int
	launched   int
	sentPrompt []string
	state      supervisor.State
}

func (f *fakeDriver) SendExit(ctx context.Context, id supervisor.AgentID) error {
	f.sentExit++
	return nil
}
func (f *fakeDriver) LaunchAgent(ctx context.Context, id supervisor.AgentID, spec supervisor.LaunchSpec) error {
	f.launched++
	return nil
}
func (f *fakeDriver) CapturePane(ctx context.Context, id supervisor.AgentID) (string, error) {
	if f.ready {
		return "bypass permissions", nil
	}
	return "", nil
}
func (f *fakeDriver) IsReady(content string) bool {
	return f.ready
}
func (f *fakeDriver) State(id supervisor.AgentID) (supervisor.State, bool) {
	return f.state, true
}
func (f *fakeDriver) SendKeysWithEnter(ctx context.Context, id supervisor.AgentID, text string) error {
	f.sentPrompt = append(f.sentPrompt, text)
	return nil
}

func writeTaskFile(t *testing.T, dir, feature, body string) string {
	t.Helper()
	path := filepath.Join(dir, feature+"-tasks.md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write task file: %v", err)
	}
	return path
}

func TestExecutorFullCycle(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "feat", "- [ ] 1. First\n- [ ] 2. Second\n")

	cfg := DefaultConfig(dir)
	cfg.ExitWait = 0
	cfg.ReadyTimeout = time.Second
	cfg.PollDelay = 0
	cfg.BatchSize = 2

	e := New("feat", supervisor.AgentID(0), dir, "", cfg)
	d := &fakeDriver{}
	ctx := context.Background()

	if err := e.Trigger(ctx, d); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if e.Phase != PhaseExitingAgent {
		t.Fatalf("phase after Trigger = %v", e.Phase)
	}

	e.Tick(ctx, d) // ExitingAgent -> RelaunchingAgent (ExitWait=0)
	if e.Phase != PhaseRelaunchingAgent {
		t.Fatalf("phase = %v, want RelaunchingAgent", e.Phase)
	}

	d.ready = false
	e.Tick(ctx, d) // not ready yet, no timeout
	if e.Phase != PhaseRelaunchingAgent {
		t.Fatalf("phase = %v, want still RelaunchingAgent", e.Phase)
	}

	d.ready = true
	e.Tick(ctx, d) // RelaunchingAgent -> SendingBatch
	if e.Phase != PhaseSendingBatch {
		t.Fatalf("phase = %v, want SendingBatch", e.Phase)
	}

	e.Tick(ctx, d) // SendingBatch -> WaitingPollDelay
	if e.Phase != PhaseWaitingPollDelay {
		t.Fatalf("phase = %v, want WaitingPollDelay", e.Phase)
	}
	if len(d.sentPrompt) != 1 {
		t.Fatalf("sentPrompt = %d, want 1", len(d.sentPrompt))
	}
	if len(e.CurrentBatch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(e.CurrentBatch))
	}

	e.Tick(ctx, d) // WaitingPollDelay -> PollingStatus (PollDelay=0)
	if e.Phase != PhasePollingStatus {
		t.Fatalf("phase = %v, want PollingStatus", e.Phase)
	}

	// Mark both tasks complete and tick again: should finish.
	writeTaskFile(t, dir, "feat", "- [x] 1. First\n- [x] 2. Second\n")
	d.state = supervisor.StateReadyIdle
	e.Tick(ctx, d)
	if e.Phase != PhaseCompleted {
		t.Fatalf("phase = %v, want Completed", e.Phase)
	}
}

func TestExecutorRelaunchTimeout(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "feat", "- [ ] 1. First\n")

	cfg := DefaultConfig(dir)
	cfg.ExitWait = 0
	cfg.ReadyTimeout = 0

	e := New("feat", supervisor.AgentID(0), dir, "", cfg)
	d := &fakeDriver{ready: false}
	ctx := context.Background()

	_ = e.Trigger(ctx, d)
	e.Tick(ctx, d) // -> RelaunchingAgent
	e.since = now().Add(-time.Hour)
	e.Tick(ctx, d) // ReadyTimeout already exceeded -> Failed
	if e.Phase != PhaseFailed {
		t.Fatalf("phase = %v, want Failed", e.Phase)
	}
}

func TestExecutorValidateMissingTaskFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	e := New("missing", supervisor.AgentID(0), dir, "", cfg)
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for missing task file")
	}
}

func TestExecutorCancel(t *testing.T) {
	dir := t.TempDir()
	writeTaskFile(t, dir, "feat", "- [ ] 1. First\n")
	cfg := DefaultConfig(dir)
	e := New("feat", supervisor.AgentID(0), dir, "", cfg)
	d := &fakeDriver{}
	_ = e.Trigger(context.Background(), d)
	e.Cancel()
	if e.Phase != PhaseIdle {
		t.Fatalf("phase after Cancel = %v, want Idle", e.Phase)
	}
}

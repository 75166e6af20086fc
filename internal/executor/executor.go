// Package executor implements the feature-execution state machine:
// repeatedly exit+relaunch an agent, parse the task file, select a
// runnable batch via the DAG scheduler, send it, poll status, and
// repeat until done or blocked (spec.md §4.3.3).
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marcus/macot/internal/supervisor"
	"github.com/marcus/macot/internal/taskfile"
)

// ErrMissingTaskFile is returned by Validate when tasks_path does not exist.
var ErrMissingTaskFile = errors.New("executor: tasks file not found")

// Phase is the executor's state-machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseExitingAgent
	PhaseRelaunchingAgent
	PhaseSendingBatch
	PhaseWaitingPollDelay
	PhasePollingStatus
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseExitingAgent:
		return "exiting_agent"
	case PhaseRelaunchingAgent:
		return "relaunching_agent"
	case PhaseSendingBatch:
		return "sending_batch"
	case PhaseWaitingPollDelay:
		return "waiting_poll_delay"
	case PhasePollingStatus:
		return "polling_status"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the executor's timing and behavior tunables.
type Config struct {
	Mode       taskfile.Mode
	BatchSize  int
	PollDelay  time.Duration // default 30s
	ExitWait   time.Duration // default 3s
	ReadyTimeout time.Duration // default 60s (relaunch)
	SpecsDir   string
}

// DefaultConfig returns spec.md's documented defaults, with DAG mode
// and a batch size of 1 (callers override as needed).
func DefaultConfig(specsDir string) Config {
	return Config{
		Mode:         taskfile.ModeDAG,
		BatchSize:    1,
		PollDelay:    30 * time.Second,
		ExitWait:     3 * time.Second,
		ReadyTimeout: 60 * time.Second,
		SpecsDir:     specsDir,
	}
}

// Driver is the narrow contract the executor needs from the
// supervisor: exit/relaunch the agent, capture its pane, and read its
// readiness/state.
type Driver interface {
	SendExit(ctx context.Context, id supervisor.AgentID) error
	LaunchAgent(ctx context.Context, id supervisor.AgentID, spec supervisor.LaunchSpec) error
	CapturePane(ctx context.Context, id supervisor.AgentID) (string, error)
	IsReady(content string) bool
	State(id supervisor.AgentID) (supervisor.State, bool)
	SendKeysWithEnter(ctx context.Context, id supervisor.AgentID, text string) error
}

// Executor drives a single agent through a feature's task list.
type Executor struct {
	FeatureName string
	AgentID     supervisor.AgentID
	cfg         Config

	TasksPath        string
	DesignPath       string // "" if absent
	WorkingDir       string
	SystemPromptPath string
	AgentsJSONFile   string

	Phase          Phase
	FailureReason  string
	TotalTasks     int
	CompletedTasks int
	CurrentBatch   []taskfile.TaskEntry

	since time.Time // timestamp the current timed phase began
}

// New constructs an Executor for feature on agentID. tasks_path is
// derived from cfg.SpecsDir; design_path is recorded only if it
// exists on disk.
func New(feature string, agentID supervisor.AgentID, workingDir, systemPromptPath string, cfg Config) *Executor {
	e := &Executor{
		FeatureName:      feature,
		AgentID:          agentID,
		cfg:              cfg,
		TasksPath:        fmt.Sprintf("%s/%s-tasks.md", cfg.SpecsDir, feature),
		WorkingDir:       workingDir,
		SystemPromptPath: systemPromptPath,
		Phase:            PhaseIdle,
	}
	designPath := fmt.Sprintf("%s/%s-design.md", cfg.SpecsDir, feature)
	if _, err := os.Stat(designPath); err == nil {
		e.DesignPath = designPath
	}
	return e
}

// Validate fails immediately if the task file does not exist.
func (e *Executor) Validate() error {
	if _, err := os.Stat(e.TasksPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingTaskFile, e.TasksPath)
	}
	return nil
}

// Trigger transitions Idle -> ExitingAgent and issues send_exit. The
// first batch always goes through a full exit+relaunch cycle to
// guarantee a clean context window.
func (e *Executor) Trigger(ctx context.Context, d Driver) error {
	if err := e.Validate(); err != nil {
		e.fail(err.Error())
		return err
	}
	if err := d.SendExit(ctx, e.AgentID); err != nil {
		e.fail(fmt.Sprintf("send failed: %v", err))
		return err
	}
	e.Phase = PhaseExitingAgent
	e.since = now()
	return nil
}

// Cancel transitions any phase directly to Idle; no partial batch is
// sent (spec.md §4.3.3 cancellation).
func (e *Executor) Cancel() {
	e.Phase = PhaseIdle
	e.CurrentBatch = nil
	e.FailureReason = ""
}

// Tick advances the state machine by at most one transition, per
// spec.md §5's "phase transitions are totally ordered; no two
// transitions happen in the same tick."
func (e *Executor) Tick(ctx context.Context, d Driver) {
	switch e.Phase {
	case PhaseIdle, PhaseCompleted, PhaseFailed:
		return
	case PhaseExitingAgent:
		e.tickExiting(ctx, d)
	case PhaseRelaunchingAgent:
		e.tickRelaunching(ctx, d)
	case PhaseSendingBatch:
		e.tickSendingBatch(ctx, d)
	case PhaseWaitingPollDelay:
		e.tickWaitingPollDelay()
	case PhasePollingStatus:
		e.tickPollingStatus(ctx, d)
	}
}

func (e *Executor) tickExiting(ctx context.Context, d Driver) {
	if now().Sub(e.since) < e.cfg.ExitWait {
		return
	}
	spec := supervisor.LaunchSpec{
		WorkingDir:       e.WorkingDir,
		SystemPromptFile: e.SystemPromptPath,
		AgentsJSONFile:   e.AgentsJSONFile,
	}
	if err := d.LaunchAgent(ctx, e.AgentID, spec); err != nil {
		e.fail(fmt.Sprintf("send failed: %v", err))
		return
	}
	e.Phase = PhaseRelaunchingAgent
	e.since = now()
}

func (e *Executor) tickRelaunching(ctx context.Context, d Driver) {
	content, err := d.CapturePane(ctx, e.AgentID)
	if err == nil && d.IsReady(content) {
		e.Phase = PhaseSendingBatch
		return
	}
	if now().Sub(e.since) >= e.cfg.ReadyTimeout {
		e.fail("timed out waiting for agent restart")
	}
}

func (e *Executor) tickSendingBatch(ctx context.Context, d Driver) {
	tasks, err := taskfile.ParseFile(e.TasksPath)
	if err != nil {
		e.fail(fmt.Sprintf("task file parse error: %v", err))
		return
	}
	e.TotalTasks = len(tasks)

	result := taskfile.SelectRunnable(tasks, e.cfg.Mode)
	switch result.Outcome {
	case taskfile.OutcomeAllDone:
		e.Phase = PhaseCompleted
		return
	case taskfile.OutcomeBlocked:
		e.fail(FormatBlocked(result.Blocked, result.HasCycle))
		return
	}

	batch := result.Runnable
	if len(batch) > e.cfg.BatchSize {
		batch = batch[:e.cfg.BatchSize]
	}
	e.CurrentBatch = batch

	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	e.CompletedTasks = completed

	prompt := BuildBatchPrompt(e.FeatureName, e.DesignPath, e.TasksPath, batch)
	if err := d.SendKeysWithEnter(ctx, e.AgentID, prompt); err != nil {
		e.fail(fmt.Sprintf("send failed: %v", err))
		return
	}
	e.Phase = PhaseWaitingPollDelay
	e.since = now()
}

func (e *Executor) tickWaitingPollDelay() {
	if now().Sub(e.since) >= e.cfg.PollDelay {
		e.Phase = PhasePollingStatus
	}
}

func (e *Executor) tickPollingStatus(ctx context.Context, d Driver) {
	state, ok := d.State(e.AgentID)
	if !ok || state != supervisor.StateReadyIdle {
		return // still busy (or unknown); polled again next tick
	}

	tasks, err := taskfile.ParseFile(e.TasksPath)
	if err != nil {
		e.fail(fmt.Sprintf("task file parse error: %v", err))
		return
	}
	remaining := 0
	for _, t := range tasks {
		if !t.Completed {
			remaining++
		}
	}
	if remaining == 0 {
		e.Phase = PhaseCompleted
		return
	}

	if err := d.SendExit(ctx, e.AgentID); err != nil {
		e.fail(fmt.Sprintf("send failed: %v", err))
		return
	}
	e.Phase = PhaseExitingAgent
	e.since = now()
}

func (e *Executor) fail(reason string) {
	e.Phase = PhaseFailed
	e.FailureReason = reason
}

// now is indirected so tests can control time deterministically.
var now = time.Now

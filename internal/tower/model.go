// Package tower is the single-threaded cooperative control loop: a
// thin bubbletea model that advances the router, the active feature
// executors, and the focused preview view on a fixed cadence, and
// forwards keystrokes to either the preview's local scroll handling
// or the focused agent's pane (spec.md §5). It intentionally does not
// reimplement the teacher's full plugin/kanban surface; it is a
// status view over the same agent fleet.
package tower

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/macot/internal/executor"
	"github.com/marcus/macot/internal/preview"
	"github.com/marcus/macot/internal/router"
	"github.com/marcus/macot/internal/supervisor"
)

// frameTick drives the render loop: ~60Hz while something is dirty,
// falling back to a 16ms idle poll otherwise, matching the teacher's
// own 16ms intro-animation tick in internal/app/intro.go.
const frameTick = 16 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the tower's bubbletea model.
type Model struct {
	sup      *supervisor.Supervisor
	session  string
	router   *router.Router
	queueDir string

	executors map[supervisor.AgentID]*executor.Executor
	execCfg   executor.Config

	view       *preview.View
	previewCfg preview.Config
	focused    supervisor.AgentID
	hasFocus   bool

	width, height int
	dirty         bool

	log *slog.Logger

	lastRouterTick time.Time
	lastPreview    time.Time
	lastKeystroke  time.Time
}

// New builds a tower Model. queueDir is the project's .macot directory
// (router.QueueRootMessagesDir's result); execCfg seeds any feature
// executor later triggered via TriggerFeature; routerCfg/previewCfg
// tune the router and preview engine (config.RouterConfig/PreviewConfig).
func New(sup *supervisor.Supervisor, session, queueDir string, execCfg executor.Config, routerCfg router.Config, previewCfg preview.Config, log *slog.Logger) *Model {
	if log == nil {
		log = slog.Default()
	}
	r := router.New(queueDir, sup.Registry(), sup, routerCfg, log)
	r.WatchOutbox()
	return &Model{
		sup:        sup,
		session:    session,
		router:     r,
		queueDir:   queueDir,
		executors:  make(map[supervisor.AgentID]*executor.Executor),
		execCfg:    execCfg,
		view:       preview.NewView(),
		previewCfg: previewCfg,
		log:        log,
	}
}

// TriggerFeature starts feature execution for agentID; the tower ticks
// it alongside every frame until it reaches Completed or Failed.
func (m *Model) TriggerFeature(ctx context.Context, feature string, agentID supervisor.AgentID, workingDir, systemPromptPath string) error {
	e := executor.New(feature, agentID, workingDir, systemPromptPath, m.execCfg)
	if err := e.Trigger(ctx, m.sup); err != nil {
		return err
	}
	m.executors[agentID] = e
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dirty = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.advance()
		cmd := tick()
		if m.dirty {
			m.dirty = false
			return m, cmd
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if !m.hasFocus {
		return m, nil
	}

	geo := preview.ComputeGeometry(m.width, m.height)
	local, name, forwardable := preview.ClassifyKey(msg)
	switch local {
	case preview.LocalKeyPageUp:
		m.view.ScrollUp(geo.PreviewHeight, geo.PreviewHeight)
		m.dirty = true
		return m, nil
	case preview.LocalKeyPageDown:
		m.view.ScrollDown(geo.PreviewHeight, geo.PreviewHeight)
		m.dirty = true
		return m, nil
	case preview.LocalKeyHome:
		m.view.ScrollToTop()
		m.dirty = true
		return m, nil
	case preview.LocalKeyEnd:
		m.view.ScrollToBottom(geo.PreviewHeight)
		m.dirty = true
		return m, nil
	}
	if !forwardable {
		return m, nil
	}
	ctx := context.Background()
	if err := m.sup.SendKeys(ctx, m.focused, name); err != nil {
		m.log.Warn("tower: forward key failed", "agent", m.focused, "error", err)
	}
	m.lastKeystroke = time.Now()
	return m, nil
}

// Focus switches the preview to agentID.
func (m *Model) Focus(id supervisor.AgentID) {
	m.focused = id
	m.hasFocus = true
	m.view.Select(id)
	m.view.Visible = true
	m.dirty = true
}

// advance runs one cooperative tick: router, every live executor, then
// the focused preview poll, each a bounded non-blocking step per
// spec.md §5 ("no subsystem may block the loop on I/O beyond its own
// bounded timeouts").
func (m *Model) advance() {
	ctx := context.Background()
	now := time.Now()

	// An outbox event wakes the router ahead of its poll interval.
	outboxEvent := false
	select {
	case _, ok := <-m.router.Events():
		outboxEvent = ok
	default:
	}
	if outboxEvent || now.Sub(m.lastRouterTick) >= m.router.PollInterval() {
		m.router.Tick(ctx, now)
		m.lastRouterTick = now
	}

	m.sup.Refresh(ctx)

	for id, e := range m.executors {
		e.Tick(ctx, m.sup)
		if e.Phase == executor.PhaseCompleted || e.Phase == executor.PhaseFailed {
			delete(m.executors, id)
		}
	}

	geo := preview.ComputeGeometry(m.width, m.height)
	if geo.PreviewWidth > 0 && geo.PreviewHeight > 0 {
		agents := m.sup.Registry().All()
		ids := make([]supervisor.AgentID, len(agents))
		for i, a := range agents {
			ids[i] = a.ID
		}
		if err := m.view.SyncPaneSizes(ctx, m.sup, ids, geo.PreviewWidth, geo.PreviewHeight); err != nil {
			m.log.Warn("tower: pane resize failed", "error", err)
		}
	}

	debounce := m.previewCfg.InputDebounce
	if debounce <= 0 {
		debounce = preview.InputDebounce
	}
	pollInterval := m.previewCfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = preview.PollInterval
	}
	if m.hasFocus && now.Sub(m.lastPreview) >= pollInterval && now.Sub(m.lastKeystroke) >= debounce {
		changed, err := m.view.Poll(ctx, m.sup, geo.PreviewHeight)
		if err != nil {
			m.log.Warn("tower: preview poll failed", "agent", m.focused, "error", err)
		}
		if changed {
			m.dirty = true
		}
		m.lastPreview = now
	}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "starting...\n"
	}

	header := fmt.Sprintf("session %s", m.session)
	rows := []string{header, ""}
	for _, a := range m.sup.Registry().All() {
		rows = append(rows, fmt.Sprintf("%d  %-16s %-12s %s", a.ID, a.DisplayName, a.RoleTag, a.State))
	}

	geo := preview.ComputeGeometry(m.width, m.height)
	var body string
	if m.hasFocus && m.view.Visible {
		body = preview.RenderLines(m.view.ParsedContent, m.view.ScrollOffset, geo.PreviewHeight, geo.PreviewWidth)
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(geo.PreviewWidth).
		Height(geo.PreviewHeight).
		Render(body)

	rows = append(rows, "", panel)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Close releases the router's outbox watch.
func (m *Model) Close() error {
	return m.router.Close()
}

package supervisor

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// AgentID is a small stable integer, 0..N-1 within a session.
type AgentID int

// State is the agent's coarse lifecycle/activity classification.
type State int

const (
	StateOffline State = iota
	StateLaunching
	StateReadyIdle
	StateBusyThinking
	StateBusyExecuting
	StateError
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateLaunching:
		return "launching"
	case StateReadyIdle:
		return "ready_idle"
	case StateBusyThinking:
		return "busy_thinking"
	case StateBusyExecuting:
		return "busy_executing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Agent is the registry's record for one agent. The registry owns this
// value; other subsystems read it through Registry accessors and only
// the control loop mutates it directly (the router is handed a narrow
// SetWorktreePath accessor for the one field it may change).
type Agent struct {
	ID                 AgentID
	DisplayName        string
	RoleTag            string
	MultiplexerSession string
	PaneKey            string
	State              State
	LastActivity       time.Time

	// WorktreePath is nil for "main repository"; two agents are in the
	// same worktree group iff this field compares equal under Go's nil
	// (None==None) / pointer-value (Some(x)==Some(x)) semantics applied
	// to the *string contents*, not pointer identity.
	WorktreePath *string
}

// SameWorktreeGroup reports whether a and b are in the same worktree
// group: both nil, or both non-nil with equal string content.
func SameWorktreeGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Registry owns every Agent record for a session. It is safe for
// concurrent use; the control loop is the only writer of most fields,
// but SetWorktreePath is exposed so the router can mutate that single
// field without being handed the whole record.
type Registry struct {
	mu     sync.RWMutex
	agents map[AgentID]*Agent
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[AgentID]*Agent)}
}

// Register adds or replaces an agent record.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := a
	r.agents[a.ID] = &cp
}

// Remove deletes an agent record (used on shutdown/cleanup).
func (r *Registry) Remove(id AgentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// Get returns a copy of the agent record, or false if not registered.
func (r *Registry) Get(id AgentID) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// ByName resolves a display name case-insensitively.
func (r *Registry) ByName(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if equalFold(a.DisplayName, name) {
			return *a, true
		}
	}
	return Agent{}, false
}

// ByRole returns the first ready_idle agent matching role (case
// insensitive) and in the same worktree group as sender, in ascending
// AgentID order for determinism.
func (r *Registry) ByRole(role string, sender *string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []AgentID
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := r.agents[id]
		if !equalFold(a.RoleTag, role) {
			continue
		}
		if a.State != StateReadyIdle {
			continue
		}
		if !SameWorktreeGroup(sender, a.WorktreePath) {
			continue
		}
		return *a, true
	}
	return Agent{}, false
}

// SetState updates the state and LastActivity of an agent.
func (r *Registry) SetState(id AgentID, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		a.State = s
		a.LastActivity = time.Now()
	}
}

// SetWorktreePath is the narrow accessor the router uses to mutate the
// one field it is allowed to change (see spec's ownership note: the
// router borrows read-access and may mutate worktree_path).
func (r *Registry) SetWorktreePath(id AgentID, path *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		a.WorktreePath = path
	}
}

// All returns a snapshot of every registered agent, ordered by id.
func (r *Registry) All() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

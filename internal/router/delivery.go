package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcus/macot/internal/supervisor"
)

// AgentLookup is the narrow read contract the router needs from the
// session registry to resolve recipients (spec.md §9's design note:
// the router borrows a reference rather than owning a clone).
type AgentLookup interface {
	Get(id supervisor.AgentID) (supervisor.Agent, bool)
	ByName(name string) (supervisor.Agent, bool)
	ByRole(role string, sender *string) (supervisor.Agent, bool)
}

// Sender is the narrow write contract the router needs to deliver a
// message: send formatted text to a pane.
type Sender interface {
	SendKeysWithEnter(ctx context.Context, id supervisor.AgentID, text string) error
}

// resolution is the outcome of resolving one message's recipient.
type resolution int

const (
	resolveDelivered resolution = iota
	resolveDeferred             // recipient known but not ready_idle
	resolveUnknown              // recipient not registered (ByAgentId/ByAgentName)
	resolveMismatch             // worktree mismatch on id/name targeting
	resolveInvisible            // role targeting found no matching, same-group ready_idle agent
)

// Delivery runs the delivery loop over a queue against a registry.
type Delivery struct {
	registry    AgentLookup
	sender      Sender
	maxAttempts int
	messageTTL  time.Duration
	log         *slog.Logger
}

// NewDelivery returns a Delivery loop. maxAttempts is the delivery
// attempt cap before a message is dropped (config.RouterConfig.MaxAttempts,
// falling back to MaxAttempts when <= 0); messageTTL is the default
// lifetime applied when a message has no explicit expires_at
// (config.RouterConfig.MessageTTL, falling back to DefaultTTL).
func NewDelivery(registry AgentLookup, sender Sender, maxAttempts int, messageTTL time.Duration, log *slog.Logger) *Delivery {
	if log == nil {
		log = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	if messageTTL <= 0 {
		messageTTL = DefaultTTL
	}
	return &Delivery{registry: registry, sender: sender, maxAttempts: maxAttempts, messageTTL: messageTTL, log: log}
}

// Run performs one delivery-loop tick: walk the queue in priority
// order and attempt each message once, per spec.md §4.2.
func (d *Delivery) Run(ctx context.Context, q *Queue, now time.Time) {
	for _, m := range q.List() {
		if now.After(m.ExpiresAtOrDefault(d.messageTTL)) {
			d.log.Info("message expired", "message_id", m.MessageID)
			q.Remove(m.MessageID)
			continue
		}
		d.attempt(ctx, q, m)
	}
}

func (d *Delivery) attempt(ctx context.Context, q *Queue, m Message) {
	sender, _ := d.registry.Get(supervisor.AgentID(m.FromAgentID))

	recipient, res := d.resolve(m, sender.WorktreePath)
	switch res {
	case resolveUnknown, resolveMismatch:
		d.bumpOrDrop(q, m)
		return
	case resolveInvisible, resolveDeferred:
		return // left in queue untouched; not counted as an attempt
	}

	if recipient.State != supervisor.StateReadyIdle {
		return // defer
	}

	text := formatDelivery(sender, m)
	if err := d.sender.SendKeysWithEnter(ctx, recipient.ID, text); err != nil {
		d.log.Warn("delivery send failed", "message_id", m.MessageID, "recipient", recipient.ID, "error", err)
		d.bumpOrDrop(q, m)
		return
	}

	q.Remove(m.MessageID)
}

func (d *Delivery) resolve(m Message, senderWT *string) (supervisor.Agent, resolution) {
	switch m.Recipient.Kind {
	case ByAgentID:
		a, ok := d.registry.Get(m.Recipient.ID)
		if !ok {
			return supervisor.Agent{}, resolveUnknown
		}
		if !supervisor.SameWorktreeGroup(senderWT, a.WorktreePath) {
			return supervisor.Agent{}, resolveMismatch
		}
		return a, resolveDeferredOrDelivered(a)
	case ByAgentName:
		a, ok := d.registry.ByName(m.Recipient.Name)
		if !ok {
			return supervisor.Agent{}, resolveUnknown
		}
		if !supervisor.SameWorktreeGroup(senderWT, a.WorktreePath) {
			return supervisor.Agent{}, resolveMismatch
		}
		return a, resolveDeferredOrDelivered(a)
	case ByRole:
		a, ok := d.registry.ByRole(m.Recipient.Role, senderWT)
		if !ok {
			return supervisor.Agent{}, resolveInvisible
		}
		return a, resolveDeferredOrDelivered(a)
	default:
		return supervisor.Agent{}, resolveUnknown
	}
}

func resolveDeferredOrDelivered(a supervisor.Agent) resolution {
	if a.State == supervisor.StateReadyIdle {
		return resolveDelivered
	}
	return resolveDeferred
}

func (d *Delivery) bumpOrDrop(q *Queue, m Message) {
	m.DeliveryAttempts++
	if m.DeliveryAttempts >= d.maxAttempts {
		d.log.Warn("dropping message after max attempts", "message_id", m.MessageID, "attempts", m.DeliveryAttempts)
		q.Remove(m.MessageID)
		return
	}
	q.Update(m)
}

// formatDelivery renders the multi-line block sent to the recipient's
// pane, including sender name/id, kind, priority, subject, and body.
func formatDelivery(sender supervisor.Agent, m Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- message from %s (id %d) ---\n", displayOrUnknown(sender), m.FromAgentID)
	fmt.Fprintf(&b, "kind: %s  priority: %s\n", m.Kind, m.Priority)
	fmt.Fprintf(&b, "subject: %s\n", m.Content.Subject)
	b.WriteString(m.Content.Body)
	return b.String()
}

func displayOrUnknown(a supervisor.Agent) string {
	if a.DisplayName == "" {
		return "unknown"
	}
	return a.DisplayName
}

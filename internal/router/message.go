// Package router implements the file-backed messaging router: it
// watches an outbox directory, enqueues parsed messages into an
// in-memory priority queue, resolves recipients by id/name/role with
// worktree isolation, and delivers via pane keystrokes with retry,
// TTL, and at-least-once semantics (spec.md §4.2).
package router

import (
	"fmt"
	"time"

	"github.com/marcus/macot/internal/supervisor"
)

// Kind is the message's purpose tag.
type Kind string

const (
	KindQuery    Kind = "query"
	KindResponse Kind = "response"
	KindNotify   Kind = "notify"
	KindDelegate Kind = "delegate"
)

// Priority is the delivery priority bucket; High always sorts before
// Normal within the queue.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// DefaultTTL is the default message lifetime when expires_at is absent
// and no caller-supplied default applies (DefaultConfig's
// MessageTTL).
const DefaultTTL = 24 * time.Hour

// MaxAttempts is the default delivery attempt cap before a message is
// dropped (DefaultConfig's MaxAttempts).
const MaxAttempts = 100

// RecipientKind distinguishes the three ways a message may target an
// agent; modeled as a tagged variant per spec.md §9's design note
// rather than an interface hierarchy, since the router's dispatch is
// a single switch over the tag.
type RecipientKind int

const (
	ByAgentID RecipientKind = iota
	ByAgentName
	ByRole
)

// Recipient is the tagged variant addressing a message's target.
type Recipient struct {
	Kind RecipientKind
	ID   supervisor.AgentID // valid when Kind == ByAgentID
	Name string             // valid when Kind == ByAgentName (case-insensitive)
	Role string             // valid when Kind == ByRole (case-insensitive)
}

func (r Recipient) String() string {
	switch r.Kind {
	case ByAgentID:
		return fmt.Sprintf("expert_id:%d", r.ID)
	case ByAgentName:
		return fmt.Sprintf("expert_name:%q", r.Name)
	case ByRole:
		return fmt.Sprintf("role:%q", r.Role)
	default:
		return "unknown"
	}
}

// Content is the message's user-visible payload.
type Content struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Message is the queue unit, round-tripped through the outbox YAML
// file format in spec.md §6.
type Message struct {
	MessageID        string    `yaml:"message_id"`
	FromAgentID      int       `yaml:"from_expert_id"`
	To               wireTo    `yaml:"to"`
	Kind             Kind      `yaml:"message_type"`
	Priority         Priority  `yaml:"priority"`
	CreatedAt        time.Time `yaml:"created_at"`
	ExpiresAt        *time.Time `yaml:"expires_at,omitempty"`
	Content          Content   `yaml:"content"`
	ReplyTo          *string   `yaml:"reply_to,omitempty"`
	DeliveryAttempts int       `yaml:"delivery_attempts"`

	// Recipient is the parsed, in-memory form of To; populated after
	// unmarshaling and consumed by the router's resolution step.
	Recipient Recipient `yaml:"-"`
}

// wireTo mirrors the YAML shape of the `to:` field, where exactly one
// of the three alternatives is present.
type wireTo struct {
	ExpertID   *int    `yaml:"expert_id,omitempty"`
	ExpertName *string `yaml:"expert_name,omitempty"`
	Role       *string `yaml:"role,omitempty"`
}

// NewMessageID formats a sortable message id from a timestamp, per
// spec.md §3: "msg-<YYYYMMDD-HHMMSSmmm>" — date, time, and a
// zero-padded millisecond suffix with no extra separators so the id
// sorts lexicographically in temporal order.
func NewMessageID(t time.Time) string {
	u := t.UTC()
	ms := u.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("msg-%s%03d", u.Format("20060102-150405"), ms)
}

// ExpiresAtOrDefault returns ExpiresAt if set, else CreatedAt+ttl. ttl
// is the configured Router.MessageTTL (config.RouterConfig), passed in
// rather than hardcoded so a deployment's config file actually governs
// message lifetime.
func (m Message) ExpiresAtOrDefault(ttl time.Duration) time.Time {
	if m.ExpiresAt != nil {
		return *m.ExpiresAt
	}
	return m.CreatedAt.Add(ttl)
}

// syncRecipientFromWire populates Recipient from To after unmarshal;
// syncWireFromRecipient does the reverse before marshal. Together they
// keep the wire shape and the in-memory tagged variant in lockstep.
func (m *Message) syncRecipientFromWire() error {
	set := 0
	for _, present := range []bool{m.To.ExpertID != nil, m.To.ExpertName != nil, m.To.Role != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("message %s: to: must set exactly one of expert_id/expert_name/role", m.MessageID)
	}
	switch {
	case m.To.ExpertID != nil:
		m.Recipient = Recipient{Kind: ByAgentID, ID: supervisor.AgentID(*m.To.ExpertID)}
	case m.To.ExpertName != nil:
		m.Recipient = Recipient{Kind: ByAgentName, Name: *m.To.ExpertName}
	case m.To.Role != nil:
		m.Recipient = Recipient{Kind: ByRole, Role: *m.To.Role}
	default:
		return fmt.Errorf("message %s: to: must set exactly one of expert_id/expert_name/role", m.MessageID)
	}
	return nil
}

func (m *Message) syncWireFromRecipient() {
	m.To = wireTo{}
	switch m.Recipient.Kind {
	case ByAgentID:
		id := int(m.Recipient.ID)
		m.To.ExpertID = &id
	case ByAgentName:
		name := m.Recipient.Name
		m.To.ExpertName = &name
	case ByRole:
		role := m.Recipient.Role
		m.To.Role = &role
	}
}

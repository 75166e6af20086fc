package router

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const messageFileExt = ".yaml"

// Outbox owns the on-disk outbox directory: it is the only component
// that reads or deletes files under it (spec.md §4.2's "Outbox
// contract"). Malformed files are moved to a malformed/ sibling and
// never re-ingested.
type Outbox struct {
	root       string // <queue_root>/messages
	messageTTL time.Duration
	log        *slog.Logger
}

// NewOutbox returns an Outbox rooted at queueRoot/messages. messageTTL
// is the default lifetime applied to messages with no explicit
// expires_at (config.RouterConfig.MessageTTL); a zero value falls back
// to DefaultTTL.
func NewOutbox(queueRoot string, messageTTL time.Duration, log *slog.Logger) *Outbox {
	if log == nil {
		log = slog.Default()
	}
	if messageTTL <= 0 {
		messageTTL = DefaultTTL
	}
	return &Outbox{root: filepath.Join(queueRoot, "messages"), messageTTL: messageTTL, log: log}
}

func (o *Outbox) outboxDir() string    { return filepath.Join(o.root, "outbox") }
func (o *Outbox) malformedDir() string { return filepath.Join(o.root, "malformed") }

// Ingest performs one ingest-loop tick: list outbox entries, parse
// each, quarantine malformed files, drop already-expired ones, and
// insert everything else into q. Returns the number of messages
// newly inserted.
func (o *Outbox) Ingest(q *Queue, now time.Time) (int, error) {
	entries, err := os.ReadDir(o.outboxDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("list outbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), messageFileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	inserted := 0
	for _, name := range names {
		path := filepath.Join(o.outboxDir(), name)
		b, err := os.ReadFile(path)
		if err != nil {
			continue // transient; retried next tick
		}

		msg, err := ParseMessage(b)
		if err != nil {
			o.quarantine(path, name, err)
			continue
		}

		if now.After(msg.ExpiresAtOrDefault(o.messageTTL)) {
			o.log.Info("dropping expired message before ingest", "message_id", msg.MessageID)
			os.Remove(path)
			continue
		}

		if q.Insert(msg) {
			inserted++
		}
		// Idempotent: whether or not Insert added it, the file has been
		// consumed and is removed (re-delivery of a duplicate file must
		// not resurrect a message already delivered/expired elsewhere).
		os.Remove(path)
	}
	return inserted, nil
}

func (o *Outbox) quarantine(path, name string, parseErr error) {
	o.log.Warn("quarantining malformed message file", "file", name, "error", parseErr)
	if err := os.MkdirAll(o.malformedDir(), 0o755); err != nil {
		o.log.Error("failed to create malformed dir", "error", err)
		return
	}
	dst := filepath.Join(o.malformedDir(), name)
	if err := os.Rename(path, dst); err != nil {
		o.log.Error("failed to quarantine message file", "file", name, "error", err)
	}
}

// ParseMessage decodes one message YAML file into a Message, filling
// in defaults (delivery_attempts=0) and syncing the Recipient variant
// from the wire `to:` shape.
func ParseMessage(b []byte) (Message, error) {
	var m Message
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("parse message yaml: %w", err)
	}
	if m.MessageID == "" {
		return Message{}, fmt.Errorf("message missing message_id")
	}
	if err := m.syncRecipientFromWire(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// MarshalMessage encodes m back to its wire YAML form (used by R2's
// round-trip and by tests; agents themselves write these files, the
// router never does in normal operation).
func MarshalMessage(m Message) ([]byte, error) {
	m.syncWireFromRecipient()
	return yaml.Marshal(m)
}

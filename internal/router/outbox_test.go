package router

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseMessageRoundTrip(t *testing.T) {
	id := 3
	m := Message{
		MessageID:   "msg-20260305-140907123",
		FromAgentID: 1,
		To:          wireTo{ExpertID: &id},
		Kind:        KindQuery,
		Priority:    PriorityNormal,
		CreatedAt:   time.Date(2026, 3, 5, 14, 9, 7, 123_000_000, time.UTC),
		Content:     Content{Subject: "status?", Body: "how's task 4 going"},
	}
	b, err := MarshalMessage(m)
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}
	got, err := ParseMessage(b)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if got.MessageID != m.MessageID || got.Content.Subject != m.Content.Subject {
		t.Errorf("got %+v", got)
	}
	if got.Recipient.Kind != ByAgentID || got.Recipient.ID != 3 {
		t.Errorf("recipient = %+v", got.Recipient)
	}
}

func TestParseMessageMissingID(t *testing.T) {
	_, err := ParseMessage([]byte("message_type: query\n"))
	if err == nil {
		t.Fatal("expected error for missing message_id")
	}
}

func TestIngestQuarantinesMalformedFile(t *testing.T) {
	dir := t.TempDir()
	outboxDir := filepath.Join(dir, "messages", "outbox")
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outboxDir, "bad.yaml"), []byte("not: [valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	o := NewOutbox(dir, 0, nil)
	q := NewQueue()
	inserted, err := o.Ingest(q, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("inserted = %d, want 0", inserted)
	}
	if _, err := os.Stat(filepath.Join(dir, "messages", "malformed", "bad.yaml")); err != nil {
		t.Errorf("expected quarantined file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outboxDir, "bad.yaml")); !os.IsNotExist(err) {
		t.Errorf("malformed file should be removed from outbox")
	}
}

func TestIngestDropsExpiredMessage(t *testing.T) {
	dir := t.TempDir()
	outboxDir := filepath.Join(dir, "messages", "outbox")
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	name := "m1.yaml"
	id := 2
	expired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Message{
		MessageID: "msg-20200101-000000000",
		To:        wireTo{ExpertID: &id},
		CreatedAt: expired,
		ExpiresAt: &expired,
	}
	b, _ := MarshalMessage(m)
	if err := os.WriteFile(filepath.Join(outboxDir, name), b, 0o644); err != nil {
		t.Fatal(err)
	}

	o := NewOutbox(dir, 0, nil)
	q := NewQueue()
	inserted, err := o.Ingest(q, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if inserted != 0 || q.Len() != 0 {
		t.Fatalf("expired message should not be queued: inserted=%d len=%d", inserted, q.Len())
	}
}

func TestIngestInsertsValidMessageAndConsumesFile(t *testing.T) {
	dir := t.TempDir()
	outboxDir := filepath.Join(dir, "messages", "outbox")
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	id := 2
	m := Message{
		MessageID: "msg-20260305-140907123",
		To:        wireTo{ExpertID: &id},
		CreatedAt: time.Now(),
	}
	b, _ := MarshalMessage(m)
	path := filepath.Join(outboxDir, "m1.yaml")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	o := NewOutbox(dir, 0, nil)
	q := NewQueue()
	inserted, err := o.Ingest(q, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if inserted != 1 || q.Len() != 1 {
		t.Fatalf("inserted=%d len=%d, want 1/1", inserted, q.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("outbox file should be consumed")
	}
}

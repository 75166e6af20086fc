package router

import (
	"testing"
	"time"
)

func TestNewMessageIDFormat(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 9, 7, 123_000_000, time.UTC)
	got := NewMessageID(ts)
	want := "msg-20260305-140907123"
	if got != want {
		t.Errorf("NewMessageID = %q, want %q", got, want)
	}
}

func TestNewMessageIDSortsTemporally(t *testing.T) {
	earlier := NewMessageID(time.Date(2026, 3, 5, 14, 9, 7, 0, time.UTC))
	later := NewMessageID(time.Date(2026, 3, 5, 14, 9, 8, 0, time.UTC))
	if !(earlier < later) {
		t.Errorf("expected %q < %q", earlier, later)
	}
}

func TestExpiresAtOrDefault(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Message{CreatedAt: created}
	if got := m.ExpiresAtOrDefault(DefaultTTL); !got.Equal(created.Add(DefaultTTL)) {
		t.Errorf("got %v, want created+DefaultTTL", got)
	}
	if got := m.ExpiresAtOrDefault(time.Hour); !got.Equal(created.Add(time.Hour)) {
		t.Errorf("got %v, want created+1h with a caller-supplied ttl", got)
	}

	explicit := created.Add(time.Hour)
	m.ExpiresAt = &explicit
	if got := m.ExpiresAtOrDefault(DefaultTTL); !got.Equal(explicit) {
		t.Errorf("got %v, want explicit expires_at regardless of ttl", got)
	}
}

func TestSyncRecipientRoundTrip(t *testing.T) {
	role := "reviewer"
	m := Message{MessageID: "msg-1", To: wireTo{Role: &role}}
	if err := m.syncRecipientFromWire(); err != nil {
		t.Fatalf("syncRecipientFromWire: %v", err)
	}
	if m.Recipient.Kind != ByRole || m.Recipient.Role != "reviewer" {
		t.Fatalf("got %+v", m.Recipient)
	}

	m.syncWireFromRecipient()
	if m.To.Role == nil || *m.To.Role != "reviewer" || m.To.ExpertID != nil || m.To.ExpertName != nil {
		t.Fatalf("got %+v", m.To)
	}
}

func TestSyncRecipientRequiresExactlyOne(t *testing.T) {
	m := Message{MessageID: "msg-1"}
	if err := m.syncRecipientFromWire(); err == nil {
		t.Fatal("expected error when to: sets nothing")
	}

	id, role := 1, "reviewer"
	both := Message{MessageID: "msg-2", To: wireTo{ExpertID: &id, Role: &role}}
	if err := both.syncRecipientFromWire(); err == nil {
		t.Fatal("expected error when to: sets more than one alternative")
	}
}

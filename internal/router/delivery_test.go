package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcus/macot/internal/supervisor"
)

type fakeRegistry struct {
	byID   map[supervisor.AgentID]supervisor.Agent
	byName map[string]supervisor.Agent
	byRole map[string]supervisor.Agent
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		byID:   map[supervisor.AgentID]supervisor.Agent{},
		byName: map[string]supervisor.Agent{},
		byRole: map[string]supervisor.Agent{},
	}
}

func (f *fakeRegistry) add(a supervisor.Agent) {
	f.byID[a.ID] = a
	f.byName[a.DisplayName] = a
	f.byRole[a.RoleTag] = a
}

func (f *fakeRegistry) Get(id supervisor.AgentID) (supervisor.Agent, bool) {
	a, ok := f.byID[id]
	return a, ok
}
func (f *fakeRegistry) ByName(name string) (supervisor.Agent, bool) {
	a, ok := f.byName[name]
	return a, ok
}
func (f *fakeRegistry) ByRole(role string, sender *string) (supervisor.Agent, bool) {
	a, ok := f.byRole[role]
	if !ok || a.State != supervisor.StateReadyIdle || !supervisor.SameWorktreeGroup(sender, a.WorktreePath) {
		return supervisor.Agent{}, false
	}
	return a, true
}

type fakeSender struct {
	sent []supervisor.AgentID
	fail bool
}

func (f *fakeSender) SendKeysWithEnter(ctx context.Context, id supervisor.AgentID, text string) error {
	if f.fail {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, id)
	return nil
}

func idMessage(id supervisor.AgentID) Message {
	return Message{
		MessageID: "msg-1",
		To:        wireTo{},
		Recipient: Recipient{Kind: ByAgentID, ID: id},
		CreatedAt: time.Now(),
	}
}

func TestDeliveryDeliversToReadyRecipient(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(supervisor.Agent{ID: 1, DisplayName: "reviewer1", State: supervisor.StateReadyIdle})
	sender := &fakeSender{}
	d := NewDelivery(reg, sender, MaxAttempts, DefaultTTL, nil)
	q := NewQueue()
	m := idMessage(1)
	q.Insert(m)

	d.Run(context.Background(), q, time.Now())

	if len(sender.sent) != 1 || sender.sent[0] != 1 {
		t.Fatalf("sent = %v", sender.sent)
	}
	if q.Len() != 0 {
		t.Fatalf("message should be removed after delivery")
	}
}

func TestDeliveryDefersUntilReady(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(supervisor.Agent{ID: 1, State: supervisor.StateBusyExecuting})
	sender := &fakeSender{}
	d := NewDelivery(reg, sender, MaxAttempts, DefaultTTL, nil)
	q := NewQueue()
	q.Insert(idMessage(1))

	d.Run(context.Background(), q, time.Now())

	if len(sender.sent) != 0 {
		t.Fatalf("should not have sent to a busy agent")
	}
	if q.Len() != 1 {
		t.Fatalf("message should remain queued")
	}
}

func TestDeliveryDropsUnknownRecipient(t *testing.T) {
	reg := newFakeRegistry()
	sender := &fakeSender{}
	d := NewDelivery(reg, sender, MaxAttempts, DefaultTTL, nil)
	q := NewQueue()
	m := idMessage(99)
	m.DeliveryAttempts = MaxAttempts - 1
	q.Insert(m)

	d.Run(context.Background(), q, time.Now())

	if q.Len() != 0 {
		t.Fatalf("message should be dropped after reaching MaxAttempts")
	}
}

func TestDeliveryWorktreeMismatchBlocksDelivery(t *testing.T) {
	reg := newFakeRegistry()
	wt := "feature-x"
	reg.add(supervisor.Agent{ID: 1, State: supervisor.StateReadyIdle, WorktreePath: &wt})
	sender := &fakeSender{}
	d := NewDelivery(reg, sender, MaxAttempts, DefaultTTL, nil)
	q := NewQueue()
	q.Insert(idMessage(1)) // sender has no worktree (nil), recipient does

	d.Run(context.Background(), q, time.Now())

	if len(sender.sent) != 0 {
		t.Fatalf("should not deliver across worktree groups")
	}
}

func TestDeliveryExpiresBeforeAttempt(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(supervisor.Agent{ID: 1, State: supervisor.StateReadyIdle})
	sender := &fakeSender{}
	d := NewDelivery(reg, sender, MaxAttempts, DefaultTTL, nil)
	q := NewQueue()
	past := time.Now().Add(-time.Hour)
	m := idMessage(1)
	m.CreatedAt = past
	m.ExpiresAt = &past
	q.Insert(m)

	d.Run(context.Background(), q, time.Now())

	if len(sender.sent) != 0 || q.Len() != 0 {
		t.Fatalf("expired message should be dropped without attempting delivery")
	}
}

package notify

import (
	"context"
	"errors"
	"snapfix/internal/domain"
	"sync"
	"testing"
	"time"
)

type memOutbox struct {
	mu      sync.Mutex
	entries map[int64]*domain.Notification
}

func newMemOutbox(entries ...domain.Notification) *memOutbox {
	m := &memOutbox{entries: map[int64]*domain.Notification{}}
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
	}
	return m
}

func (m *memOutbox) ClaimNotification(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != domain.NotificationPending {
		return false, nil
	}
	e.Status = domain.NotificationSending
	e.AttemptCount++
	return true, nil
}

func (m *memOutbox) MarkNotificationSent(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id].Status = domain.NotificationSent
	m.entries[id].ProcessedAt = &at
	return nil
}

func (m *memOutbox) MarkNotificationFailed(_ context.Context, id int64, at time.Time, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id].Status = domain.NotificationFailed
	m.entries[id].LastError = cause
	m.entries[id].ProcessedAt = &at
	return nil
}

func (m *memOutbox) ListPendingNotifications(_ context.Context, before time.Time, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, e := range m.entries {
		if e.Status == domain.NotificationPending && !e.CreatedAt.After(before) && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memOutbox) get(id int64) domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.entries[id]
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingDispatcher) Send(_ context.Context, recipient, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, recipient+"|"+message)
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		status string
		dept   string
		want   string
	}{
		{domain.DeptStatusAssigned, "PWD", "🔔 Your complaint SNFX-000042 has been assigned to PWD."},
		{domain.DeptStatusInProgress, "PWD", "⏳ Work is in progress on your complaint SNFX-000042."},
		{domain.DeptStatusResolved, "PWD", "✅ Your complaint SNFX-000042 has been resolved by PWD. Thank you!"},
		{domain.DeptStatusResolved, "", "✅ Your complaint SNFX-000042 has been resolved by Unknown. Thank you!"},
		{"Escalated", "PWD", "📋 Status updated: Escalated"},
	}
	for _, tt := range tests {
		if got := MessageFor(tt.status, "SNFX-000042", tt.dept); got != tt.want {
			t.Fatalf("MessageFor(%q, %q) = %q, want %q", tt.status, tt.dept, got, tt.want)
		}
	}
}

func TestDeliverMarksSent(t *testing.T) {
	store := newMemOutbox(domain.Notification{ID: 1, Recipient: "555", Message: "hi", Status: domain.NotificationPending})
	disp := &recordingDispatcher{}
	d := NewDeliverer(store, disp, time.Second)

	if err := d.Deliver(context.Background(), store.get(1)); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if got := store.get(1); got.Status != domain.NotificationSent || got.AttemptCount != 1 || got.ProcessedAt == nil {
		t.Fatalf("unexpected entry after send: %+v", got)
	}
	if disp.count() != 1 || disp.sent[0] != "555|hi" {
		t.Fatalf("unexpected sends: %v", disp.sent)
	}

	// A second delivery of the same entry is a no-op.
	if err := d.Deliver(context.Background(), store.get(1)); err != nil {
		t.Fatalf("second Deliver failed: %v", err)
	}
	if disp.count() != 1 {
		t.Fatalf("entry delivered twice: %v", disp.sent)
	}
}

func TestDeliverFailureIsRecordedNotReturned(t *testing.T) {
	store := newMemOutbox(domain.Notification{ID: 7, Recipient: "555", Message: "hi", Status: domain.NotificationPending})
	d := NewDeliverer(store, &recordingDispatcher{err: errors.New("bot blocked by user")}, time.Second)

	if err := d.Deliver(context.Background(), store.get(7)); err != nil {
		t.Fatalf("send failure must not surface, got %v", err)
	}
	got := store.get(7)
	if got.Status != domain.NotificationFailed || got.LastError != "bot blocked by user" {
		t.Fatalf("unexpected entry after failure: %+v", got)
	}
	if _, err := d.Sweep(context.Background(), 0, 10); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if store.get(7).AttemptCount != 1 {
		t.Fatal("failed entry must not be retried")
	}
}

func TestDeliverAsyncAndWait(t *testing.T) {
	store := newMemOutbox(
		domain.Notification{ID: 1, Recipient: "a", Message: "m1", Status: domain.NotificationPending},
		domain.Notification{ID: 2, Recipient: "b", Message: "m2", Status: domain.NotificationPending},
	)
	disp := &recordingDispatcher{}
	d := NewDeliverer(store, disp, time.Second)

	d.DeliverAsync(store.get(1))
	d.DeliverAsync(store.get(2))
	d.DeliverAsync(store.get(1))
	d.Wait()

	if disp.count() != 2 {
		t.Fatalf("expected exactly two sends, got %v", disp.sent)
	}
}

func TestSweepDeliversOnlyOldPending(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemOutbox(
		domain.Notification{ID: 1, Recipient: "a", Message: "old", Status: domain.NotificationPending, CreatedAt: now.Add(-10 * time.Minute)},
		domain.Notification{ID: 2, Recipient: "b", Message: "fresh", Status: domain.NotificationPending, CreatedAt: now.Add(-10 * time.Second)},
		domain.Notification{ID: 3, Recipient: "c", Message: "done", Status: domain.NotificationSent, CreatedAt: now.Add(-time.Hour)},
	)
	disp := &recordingDispatcher{}
	d := NewDeliverer(store, disp, time.Second)
	d.now = func() time.Time { return now }

	n, err := d.Sweep(context.Background(), time.Minute, 10)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 || disp.count() != 1 || disp.sent[0] != "a|old" {
		t.Fatalf("unexpected sweep result n=%d sends=%v", n, disp.sent)
	}
	if store.get(2).Status != domain.NotificationPending {
		t.Fatal("fresh entry must be left for the post-commit hook")
	}
}

func TestSendRespectsTimeout(t *testing.T) {
	store := newMemOutbox(domain.Notification{ID: 1, Recipient: "a", Message: "m", Status: domain.NotificationPending})
	d := NewDeliverer(store, blockingDispatcher{}, 20*time.Millisecond)

	if err := d.Deliver(context.Background(), store.get(1)); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if got := store.get(1); got.Status != domain.NotificationFailed {
		t.Fatalf("expected timed out send to be marked failed, got %+v", got)
	}
}

type blockingDispatcher struct{}

func (blockingDispatcher) Send(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLogDispatcher(t *testing.T) {
	if err := (LogDispatcher{}).Send(context.Background(), "1", "hello"); err != nil {
		t.Fatalf("LogDispatcher.Send failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (LogDispatcher{}).Send(ctx, "1", "hello"); err == nil {
		t.Fatal("expected cancelled context to fail")
	}
}

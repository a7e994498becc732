package notify

import (
	"context"
	"fmt"
	"log"
	"snapfix/internal/domain"
	"sync"
	"time"
)

// Dispatcher delivers one message to one recipient handle.
type Dispatcher interface {
	Send(ctx context.Context, recipient, message string) error
}

// LogDispatcher only logs. Used when no messaging channel is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(ctx context.Context, recipient, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("notify log recipient=%s message=%q", recipient, message)
	return nil
}

// OutboxStore is the slice of the report store the deliverer needs.
type OutboxStore interface {
	ClaimNotification(ctx context.Context, id int64) (bool, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64, at time.Time, cause string) error
	ListPendingNotifications(ctx context.Context, before time.Time, limit int) ([]domain.Notification, error)
}

// Deliverer hands committed outbox entries to a Dispatcher. Each entry is
// attempted at most once: a failed send is recorded and never retried.
type Deliverer struct {
	store      OutboxStore
	dispatcher Dispatcher
	timeout    time.Duration
	now        func() time.Time

	wg sync.WaitGroup
}

func NewDeliverer(store OutboxStore, dispatcher Dispatcher, timeout time.Duration) *Deliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Deliverer{
		store:      store,
		dispatcher: dispatcher,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// DeliverAsync is the post-commit hook. The caller's request context is not
// used, so a finished HTTP request does not cancel the send.
func (d *Deliverer) DeliverAsync(n domain.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.Deliver(context.Background(), n); err != nil {
			log.Printf("notify deliver id=%d tracking=%s: %v", n.ID, n.TrackingID, err)
		}
	}()
}

// Wait blocks until all async deliveries started so far have finished.
func (d *Deliverer) Wait() {
	d.wg.Wait()
}

// Deliver claims the entry and sends it. A send failure is logged and stored
// on the entry; the returned error only reports bookkeeping problems.
func (d *Deliverer) Deliver(ctx context.Context, n domain.Notification) error {
	claimed, err := d.store.ClaimNotification(ctx, n.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	sendErr := d.dispatcher.Send(sendCtx, n.Recipient, n.Message)
	cancel()

	if sendErr != nil {
		log.Printf("notify send failed id=%d tracking=%s recipient=%s: %v", n.ID, n.TrackingID, n.Recipient, sendErr)
		if err := d.store.MarkNotificationFailed(ctx, n.ID, d.now(), sendErr.Error()); err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		return nil
	}
	log.Printf("notify sent id=%d tracking=%s recipient=%s", n.ID, n.TrackingID, n.Recipient)
	return d.store.MarkNotificationSent(ctx, n.ID, d.now())
}

// Sweep delivers entries still pending after olderThan, covering a crash
// between commit and the post-commit hook. It returns how many it attempted.
func (d *Deliverer) Sweep(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	pending, err := d.store.ListPendingNotifications(ctx, d.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("list pending notifications: %w", err)
	}
	for i, n := range pending {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := d.Deliver(ctx, n); err != nil {
			log.Printf("notify sweep id=%d: %v", n.ID, err)
		}
	}
	return len(pending), nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

const (
	maxDeliveryAttempts = 3
	publishTimeout      = 5 * time.Second
	drainTimeout        = 5 * time.Second
)

// Publisher delivers one event to the broker.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, body any) error
}

// DeliveryRecorder counts delivery outcomes ("sent", "failed", "dropped").
type DeliveryRecorder interface {
	Notification(event, result string)
}

type nopRecorder struct{}

func (nopRecorder) Notification(string, string) {}

type notification struct {
	eventType string
	key       string
	body      any
	attempts  int
}

// NotificationWorker implements core.Notifier on top of a buffered queue so
// request handlers never wait for the broker. Failed deliveries are retried on
// the poll interval and dropped after maxDeliveryAttempts.
type NotificationWorker struct {
	BaseWorker
	pub      Publisher
	recorder DeliveryRecorder
	queue    chan notification

	mu     sync.Mutex
	failed []notification
}

var _ core.Notifier = (*NotificationWorker)(nil)

func NewNotificationWorker(pub Publisher, queueSize int, retryInterval time.Duration, recorder DeliveryRecorder, log *slog.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &NotificationWorker{
		BaseWorker: NewBaseWorker("notifications", retryInterval, log),
		pub:        pub,
		recorder:   recorder,
		queue:      make(chan notification, queueSize),
	}
}

func (w *NotificationWorker) NotifyPolicyIssued(_ context.Context, ev core.PolicyIssuedEvent) {
	w.enqueue(notification{eventType: core.EventPolicyIssued, key: ev.OrderID, body: ev})
}

func (w *NotificationWorker) NotifyClaimFiled(_ context.Context, ev core.ClaimFiledEvent) {
	w.enqueue(notification{eventType: core.EventClaimFiled, key: ev.ClaimID, body: ev})
}

func (w *NotificationWorker) enqueue(n notification) {
	select {
	case w.queue <- n:
	default:
		w.recorder.Notification(n.eventType, "dropped")
		w.log.Error("notification queue full, dropping event",
			"event", n.eventType,
			"key", n.key)
	}
}

// Start consumes the queue until ctx is cancelled, then delivers whatever is
// still queued within drainTimeout and logs what could not be delivered.
func (w *NotificationWorker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.consume(ctx)
	}()

	w.Poll(ctx, w.retryFailed)
	wg.Wait()

	if n := w.Pending(); n > 0 {
		w.log.Error("notifications undelivered at shutdown", "count", n)
	}
}

func (w *NotificationWorker) consume(ctx context.Context) {
	for {
		select {
		case n := <-w.queue:
			if ctx.Err() != nil {
				w.drain(n)
				return
			}
			w.deliver(ctx, n)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

func (w *NotificationWorker) drain(first ...notification) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for _, n := range first {
		w.deliver(ctx, n)
	}
	for {
		select {
		case n := <-w.queue:
			w.deliver(ctx, n)
		default:
			// one last attempt for events waiting on the retry interval
			_ = w.retryFailed(ctx)
			return
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n notification) {
	n.attempts++
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	err := w.pub.Publish(pubCtx, n.eventType, n.key, n.body)
	cancel()

	if err == nil {
		w.recorder.Notification(n.eventType, "sent")
		w.log.Debug("notification sent", "event", n.eventType, "key", n.key)
		return
	}

	w.recorder.Notification(n.eventType, "failed")
	if n.attempts >= maxDeliveryAttempts {
		w.recorder.Notification(n.eventType, "dropped")
		w.log.Error("notification dropped after retries",
			"event", n.eventType,
			"key", n.key,
			"attempts", n.attempts,
			"err", err)
		return
	}
	w.log.Warn("notification failed, will retry",
		"event", n.eventType,
		"key", n.key,
		"attempt", n.attempts,
		"err", err)
	w.mu.Lock()
	w.failed = append(w.failed, n)
	w.mu.Unlock()
}

// retryFailed leaves the backlog alone once ctx is done; drain owns it then.
func (w *NotificationWorker) retryFailed(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	w.mu.Lock()
	batch := w.failed
	w.failed = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	w.log.Info("retrying notifications", "count", len(batch))
	for _, n := range batch {
		if ctx.Err() != nil {
			w.mu.Lock()
			w.failed = append(w.failed, n)
			w.mu.Unlock()
			continue
		}
		w.deliver(ctx, n)
	}
	return nil
}

// Pending reports queued plus awaiting-retry events.
func (w *NotificationWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue) + len(w.failed)
}

// LogPublisher writes events to the log; used when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, eventType, key string, body any) error {
	if p.Log == nil {
		return fmt.Errorf("log publisher: no logger")
	}
	p.Log.Info("notification", "event", eventType, "key", key, "payload", body)
	return nil
}

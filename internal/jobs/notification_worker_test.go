package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

type published struct {
	eventType string
	key       string
}

type fakePublisher struct {
	mu      sync.Mutex
	calls   []published
	publish func(eventType string) error
}

func (f *fakePublisher) Publish(_ context.Context, eventType, key string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, published{eventType, key})
	if f.publish != nil {
		return f.publish(eventType)
	}
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Notification(_, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[result]++
}

func (r *countingRecorder) get(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[result]
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func run(t *testing.T, w *NotificationWorker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func TestNotificationWorkerDelivers(t *testing.T) {
	pub := &fakePublisher{}
	rec := &countingRecorder{}
	w := NewNotificationWorker(pub, 8, time.Hour, rec, discard())
	stop := run(t, w)
	defer stop()

	w.NotifyPolicyIssued(context.Background(), core.PolicyIssuedEvent{OrderID: "o-1", PolicyNumber: "P-1"})
	w.NotifyClaimFiled(context.Background(), core.ClaimFiledEvent{ClaimID: "c-1"})

	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)
	pub.mu.Lock()
	assert.Equal(t, published{core.EventPolicyIssued, "o-1"}, pub.calls[0])
	assert.Equal(t, published{core.EventClaimFiled, "c-1"}, pub.calls[1])
	pub.mu.Unlock()
	assert.Equal(t, 2, rec.get("sent"))
}

func TestNotificationWorkerDropsWhenQueueFull(t *testing.T) {
	rec := &countingRecorder{}
	w := NewNotificationWorker(&fakePublisher{}, 1, time.Hour, rec, discard())

	// not started: the second event finds the queue full
	w.NotifyClaimFiled(context.Background(), core.ClaimFiledEvent{ClaimID: "c-1"})
	w.NotifyClaimFiled(context.Background(), core.ClaimFiledEvent{ClaimID: "c-2"})

	assert.Equal(t, 1, rec.get("dropped"))
	assert.Equal(t, 1, w.Pending())
}

func TestNotificationWorkerRetriesThenDrops(t *testing.T) {
	pub := &fakePublisher{publish: func(string) error { return errors.New("broker down") }}
	rec := &countingRecorder{}
	w := NewNotificationWorker(pub, 8, 10*time.Millisecond, rec, discard())
	stop := run(t, w)
	defer stop()

	w.NotifyPolicyIssued(context.Background(), core.PolicyIssuedEvent{OrderID: "o-1"})

	require.Eventually(t, func() bool { return rec.get("dropped") == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, maxDeliveryAttempts, pub.count())
	assert.Equal(t, maxDeliveryAttempts, rec.get("failed"))
}

func TestNotificationWorkerRecoversAfterFailure(t *testing.T) {
	var mu sync.Mutex
	fail := true
	pub := &fakePublisher{publish: func(string) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			fail = false
			return errors.New("transient")
		}
		return nil
	}}
	rec := &countingRecorder{}
	w := NewNotificationWorker(pub, 8, 10*time.Millisecond, rec, discard())
	stop := run(t, w)
	defer stop()

	w.NotifyClaimFiled(context.Background(), core.ClaimFiledEvent{ClaimID: "c-1"})

	require.Eventually(t, func() bool { return rec.get("sent") == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, rec.get("dropped"))
}

func TestNotificationWorkerDrainsOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	w := NewNotificationWorker(pub, 16, time.Hour, nil, discard())
	for i := 0; i < 5; i++ {
		w.NotifyClaimFiled(context.Background(), core.ClaimFiledEvent{ClaimID: "c"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 5, pub.count())
	assert.Equal(t, 0, w.Pending())
}

func TestNotificationWorkerReportsUndeliveredOnShutdown(t *testing.T) {
	pub := &fakePublisher{publish: func(string) error { return errors.New("broker down") }}
	var logs bytes.Buffer
	w := NewNotificationWorker(pub, 8, time.Hour, nil, slog.New(slog.NewTextHandler(&logs, nil)))
	w.NotifyPolicyIssued(context.Background(), core.PolicyIssuedEvent{OrderID: "o-1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 2, pub.count(), "drain plus one final retry")
	assert.Equal(t, 1, w.Pending())
	assert.Contains(t, logs.String(), "notifications undelivered at shutdown")
	assert.NotContains(t, logs.String(), "worker error")
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{Log: discard()}.Publish(context.Background(), core.EventClaimFiled, "c-1", map[string]string{}))
	assert.Error(t, LogPublisher{}.Publish(context.Background(), core.EventClaimFiled, "c-1", nil))
}

package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseWorkerPoll(t *testing.T) {
	var logs bytes.Buffer
	w := NewBaseWorker("notifications", 5*time.Millisecond, slog.New(slog.NewTextHandler(&logs, nil)))
	assert.Equal(t, "notifications", w.Name())

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Poll(ctx, func(context.Context) error {
			if runs.Add(1) == 2 {
				return errors.New("publish failed")
			}
			return nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll did not stop")
	}

	out := logs.String()
	assert.Contains(t, out, "worker=notifications")
	assert.Contains(t, out, "worker error")
	assert.Contains(t, out, "worker stopping")
}

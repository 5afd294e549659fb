package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreport "balanceledger/internal/domain/port/core"
)

type nopLogger struct{}

func (nopLogger) SetLevel(_ coreport.LogLevel)     {}
func (nopLogger) Debug(_ string, _ map[string]any) {}
func (nopLogger) Info(_ string, _ map[string]any)  {}
func (nopLogger) Warn(_ string, _ map[string]any)  {}
func (nopLogger) Error(_ string, _ map[string]any) {}
func (nopLogger) Flush() error                     { return nil }

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time { return p.now }

func (p *fixedTimeProvider) Since(t time.Time) time.Duration { return p.now.Sub(t) }

func (p *fixedTimeProvider) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (h *recordingHandler) handle(_ context.Context, name string, _ []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
	if err, ok := h.fail[name]; ok {
		return err
	}
	return nil
}

func (h *recordingHandler) callCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, call := range h.calls {
		if call == name {
			n++
		}
	}
	return n
}

func TestPoller_Tick(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("dispatches due actions and removes them", func(t *testing.T) {
		store := NewInMem()
		require.NoError(t, store.Schedule(ctx, "due-1", now.Add(-time.Second), []byte("p1")))
		require.NoError(t, store.Schedule(ctx, "later", now.Add(time.Hour), []byte("p2")))

		handler := &recordingHandler{}
		poller := NewPoller(store, handler.handle, time.Second, &fixedTimeProvider{now: now}, nopLogger{})

		poller.Tick(ctx)

		assert.Equal(t, 1, handler.callCount("due-1"))
		assert.Equal(t, 0, handler.callCount("later"))
		assert.False(t, store.Pending("due-1"))
		assert.True(t, store.Pending("later"))
	})

	t.Run("failed actions stay due and are retried next tick", func(t *testing.T) {
		store := NewInMem()
		require.NoError(t, store.Schedule(ctx, "flaky", now.Add(-time.Second), nil))

		handler := &recordingHandler{fail: map[string]error{"flaky": errors.New("store unreachable")}}
		poller := NewPoller(store, handler.handle, time.Second, &fixedTimeProvider{now: now}, nopLogger{})

		poller.Tick(ctx)
		assert.True(t, store.Pending("flaky"), "failed action must stay scheduled")

		// The failure clears; the retry succeeds and the action is consumed.
		handler.mu.Lock()
		delete(handler.fail, "flaky")
		handler.mu.Unlock()

		poller.Tick(ctx)
		assert.Equal(t, 2, handler.callCount("flaky"))
		assert.False(t, store.Pending("flaky"))
	})
}

package scheduler

import (
	"context"
	"time"

	coreport "balanceledger/internal/domain/port/core"
)

// Action is a due scheduled action ready for dispatch
type Action struct {
	Name    string
	Payload []byte
}

// Store is the persistence view the poller needs: list what is due, remove
// what completed. A failed dispatch leaves the action in the store, so the
// next tick retries it; this is the scheduler's native retry mechanism.
type Store interface {
	Due(ctx context.Context, now time.Time) ([]Action, error)
	Remove(ctx context.Context, name string) error
}

// Handler executes one due action
type Handler func(ctx context.Context, name string, payload []byte) error

// Poller drives the delayed-action store, dispatching due actions to the
// handler on a fixed interval
type Poller struct {
	store        Store
	handler      Handler
	interval     time.Duration
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewPoller creates a new poller
func NewPoller(
	store Store,
	handler Handler,
	interval time.Duration,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		store:        store,
		handler:      handler,
		interval:     interval,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Run polls until the context is canceled
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Delayed-action poller started", map[string]any{
		"interval": p.interval.String(),
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Delayed-action poller stopped", nil)
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick dispatches everything currently due. Exposed for tests.
func (p *Poller) Tick(ctx context.Context) {
	due, err := p.store.Due(ctx, p.timeProvider.Now())
	if err != nil {
		p.logger.Error("Failed to list due actions", map[string]any{
			"error": err.Error(),
		})
		return
	}

	for _, action := range due {
		if err := p.handler(ctx, action.Name, action.Payload); err != nil {
			// Leave the action due; the next tick retries it.
			p.logger.Error("Scheduled action failed, will retry", map[string]any{
				"action": action.Name,
				"error":  err.Error(),
			})
			continue
		}
		if err := p.store.Remove(ctx, action.Name); err != nil {
			p.logger.Warn("Failed to remove completed action, rerun will be a no-op", map[string]any{
				"action": action.Name,
				"error":  err.Error(),
			})
		}
	}
}

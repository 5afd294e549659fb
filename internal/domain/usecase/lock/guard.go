package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/port/persistence"
	schedulerport "balanceledger/internal/domain/port/scheduler"
)

// DefaultUnlockDelay is how far in the future the safety-net unlock fires.
// It must exceed any plausible single-transaction processing time plus the
// caller's retry budget.
const DefaultUnlockDelay = 5 * time.Minute

const actionNamePrefix = "unlock-aggregate-user-id-"

// UnlockActionName returns the deterministic scheduler action name for a
// user. One action per user; the name makes leftover actions from a
// previous crash overwritable-by-conflict instead of piling up.
func UnlockActionName(userID string) string {
	return actionNamePrefix + userID
}

// Trigger identifies which path invoked an unlock. The two paths have
// different semantics: the normal holder expects exclusive ownership, while
// the scheduled safety net treats an already-unlocked aggregate as "no work".
type Trigger int

const (
	// TriggerNormal is the release at the end of transaction processing
	TriggerNormal Trigger = iota
	// TriggerScheduler is the compensating unlock fired by the delayed-action scheduler
	TriggerScheduler
)

// String returns the trigger name for logs
func (t Trigger) String() string {
	if t == TriggerScheduler {
		return "scheduler"
	}
	return "normal"
}

type unlockPayload struct {
	UserID string `json:"userId"`
}

// DecodeUnlockPayload extracts the user ID from a scheduled unlock action's payload
func DecodeUnlockPayload(payload []byte) (string, error) {
	var p unlockPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("%w: malformed unlock payload: %s", errs.ErrInvalidRequest, err)
	}
	if p.UserID == "" {
		return "", errs.ErrInvalidUserID
	}
	return p.UserID, nil
}

// Config holds the tunables of the lock protocol
type Config struct {
	// UnlockDelay is the safety-net delay; zero means DefaultUnlockDelay
	UnlockDelay time.Duration
}

// Guard implements the aggregate lock protocol: non-blocking conditional
// acquire and release on the per-user aggregate, with a scheduled
// compensating unlock as a crash safety net. All collaborators are
// constructor-injected.
type Guard struct {
	aggregates   persistence.AggregateRepository
	actions      schedulerport.DelayedActionScheduler
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	unlockDelay  time.Duration
}

// NewGuard creates a new lock guard
func NewGuard(
	aggregates persistence.AggregateRepository,
	actions schedulerport.DelayedActionScheduler,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	cfg Config,
) *Guard {
	delay := cfg.UnlockDelay
	if delay <= 0 {
		delay = DefaultUnlockDelay
	}

	return &Guard{
		aggregates:   aggregates,
		actions:      actions,
		timeProvider: timeProvider,
		logger:       logger,
		unlockDelay:  delay,
	}
}

// Acquire takes the per-user lock with a single conditional write and arms
// the safety-net unlock. It never blocks: when the lock is held elsewhere
// it returns ErrAggregateLocked immediately and the caller decides the
// retry policy. On the user's first transaction the aggregate is created
// already locked, so creation and acquisition are one atomic step.
//
// The returned aggregate is read after the lock is held and therefore
// stable until Release.
func (g *Guard) Acquire(ctx context.Context, userID string) (*entity.BalanceAggregate, error) {
	agg, err := g.aggregates.Get(ctx, userID)
	switch {
	case errors.Is(err, errs.ErrAggregateNotFound):
		agg, err = g.aggregates.CreateLocked(ctx, userID)
		if errors.Is(err, errs.ErrAggregateExists) {
			// A concurrent first transaction won the create race and holds
			// the lock; report busy so the caller's backoff resolves it.
			return nil, errs.ErrAggregateLocked
		}
		if err != nil {
			return nil, errs.NewLockError(userID, "create", err)
		}
	case err != nil:
		return nil, errs.NewLockError(userID, "acquire", err)
	default:
		if err := g.aggregates.Lock(ctx, userID); err != nil {
			if errors.Is(err, errs.ErrAggregateLocked) {
				return nil, err
			}
			return nil, errs.NewLockError(userID, "acquire", err)
		}
		// Re-read under the lock: the balance may have moved between the
		// first read and the conditional write.
		agg, err = g.aggregates.Get(ctx, userID)
		if err != nil {
			g.releaseQuietly(ctx, userID)
			return nil, errs.NewLockError(userID, "acquire", err)
		}
	}

	if err := g.scheduleUnlock(ctx, userID); err != nil {
		// Without a safety net a crash here would leave the aggregate
		// locked forever, so failing to arm it is fatal for this attempt.
		g.releaseQuietly(ctx, userID)
		return nil, err
	}

	g.logger.Debug("Aggregate lock acquired", map[string]any{
		"user_id": userID,
	})
	return agg, nil
}

// Release runs the unlock protocol for the given trigger.
//
// Normal trigger: unlock, then best-effort cancel of the safety net. An
// already-unlocked aggregate means the safety net fired against a live
// holder; the balance write already committed or was already handled, so
// this is logged and swallowed. Any other unlock failure re-arms the
// safety net before propagating, so the stuck lock is still cleared
// eventually.
//
// Scheduler trigger: unlock only. An already-unlocked aggregate means this
// run found no work. Any other failure propagates so the scheduler's own
// retry re-invokes later.
func (g *Guard) Release(ctx context.Context, userID string, trigger Trigger) error {
	err := g.aggregates.Unlock(ctx, userID)

	switch {
	case err == nil:
		if trigger == TriggerNormal {
			g.CancelScheduledUnlock(ctx, userID)
		}
		g.logger.Debug("Aggregate lock released", map[string]any{
			"user_id": userID,
			"trigger": trigger.String(),
		})
		return nil

	case errs.IsBenignUnlockError(err):
		if trigger == TriggerScheduler {
			g.logger.Info("Scheduled unlock found aggregate already unlocked, nothing to do", map[string]any{
				"user_id": userID,
			})
			return nil
		}
		g.logger.Warn("Lock was already released by the safety net while still held", map[string]any{
			"user_id": userID,
		})
		return nil

	default:
		if trigger == TriggerScheduler {
			return errs.NewLockError(userID, "release", err)
		}
		// Re-arm the safety net so the lock does not stay stuck, then
		// report the original failure.
		if schedErr := g.scheduleUnlock(ctx, userID); schedErr != nil {
			g.logger.Error("Failed to re-arm safety-net unlock after release failure", map[string]any{
				"user_id": userID,
				"error":   schedErr.Error(),
			})
		}
		return errs.NewLockError(userID, "release", err)
	}
}

// CancelScheduledUnlock best-effort cancels the pending safety-net action.
// Failures are logged and never escalated: the action firing late against
// an already-unlocked aggregate is a benign no-op.
func (g *Guard) CancelScheduledUnlock(ctx context.Context, userID string) {
	err := g.actions.Cancel(ctx, UnlockActionName(userID))
	if err == nil || errors.Is(err, errs.ErrActionNotFound) {
		return
	}
	g.logger.Warn("Failed to cancel safety-net unlock, late fire will be a no-op", map[string]any{
		"user_id": userID,
		"error":   err.Error(),
	})
}

// scheduleUnlock arms the compensating unlock at now + unlockDelay. A
// conflict means an action is already pending, typically left by a previous
// crash; it will still force-unlock, so it counts as armed.
func (g *Guard) scheduleUnlock(ctx context.Context, userID string) error {
	payload, err := json.Marshal(unlockPayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}

	fireAt := g.timeProvider.Now().Add(g.unlockDelay)
	err = g.actions.Schedule(ctx, UnlockActionName(userID), fireAt, payload)
	if errors.Is(err, errs.ErrActionConflict) {
		g.logger.Warn("Safety-net unlock already pending for user", map[string]any{
			"user_id": userID,
		})
		return nil
	}
	if err != nil {
		g.logger.Error("Failed to schedule safety-net unlock", map[string]any{
			"user_id": userID,
			"fire_at": fireAt,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}
	return nil
}

// releaseQuietly undoes a just-acquired lock on an aborted acquisition
func (g *Guard) releaseQuietly(ctx context.Context, userID string) {
	if err := g.aggregates.Unlock(ctx, userID); err != nil && !errs.IsBenignUnlockError(err) {
		g.logger.Error("Failed to roll back lock after aborted acquisition", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// UnlockDelay exposes the configured safety-net delay
func (g *Guard) UnlockDelay() time.Duration {
	return g.unlockDelay
}

package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/port/events"
	"balanceledger/internal/domain/port/persistence"
	"balanceledger/internal/domain/usecase/lock"
)

// SubmitRequest carries a single credit or debit submission
type SubmitRequest struct {
	UserID        string
	IdempotentKey string
	Amount        string
	Type          string
}

// SubmitResult is the outcome reported to the transport layer. Replayed is
// true when the result comes from a previously stored record.
type SubmitResult struct {
	UserID        string
	IdempotentKey string
	Status        entity.TransactionStatus
	Balance       string
	Replayed      bool
}

// RetryConfig bounds the lock-acquisition backoff. Contention between
// concurrent transactions for one user is resolved here; only after the
// attempts are exhausted does the busy state surface to the caller.
type RetryConfig struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the expected single-transaction latency under
// moderate contention
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 10,
	BaseDelay:   20 * time.Millisecond,
	MaxDelay:    500 * time.Millisecond,
}

// Service applies credits and debits under the aggregate lock, enforcing
// idempotency and the non-negative-balance invariant
type Service struct {
	guard        *lock.Guard
	aggregates   persistence.AggregateRepository
	transactions persistence.TransactionRepository
	publisher    events.Publisher
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	validator    *Validator
	idempotency  *IdempotencyChecker
	retryCfg     RetryConfig
}

// NewService creates a new transaction service
func NewService(
	guard *lock.Guard,
	aggregates persistence.AggregateRepository,
	transactions persistence.TransactionRepository,
	publisher events.Publisher,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	retryCfg RetryConfig,
) *Service {
	if retryCfg.MaxAttempts == 0 {
		retryCfg = DefaultRetryConfig
	}

	return &Service{
		guard:        guard,
		aggregates:   aggregates,
		transactions: transactions,
		publisher:    publisher,
		timeProvider: timeProvider,
		logger:       logger,
		validator:    NewValidator(),
		idempotency:  NewIdempotencyChecker(transactions),
		retryCfg:     retryCfg,
	}
}

// Submit validates and applies a single transaction.
//
// The flow follows the lock protocol end to end: idempotency pre-check
// without the lock, bounded-backoff acquisition, idempotency re-check under
// the lock, then either a rejection record (debit below zero) or an applied
// record plus a combined balance-write-and-release. Every path out of a
// successful acquisition releases the lock.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	amount, err := s.validator.ValidateSubmit(req)
	if err != nil {
		return nil, err
	}

	// Fast path: a stored record means this key was already handled and
	// no lock is needed.
	if prior, found, err := s.idempotency.Check(ctx, req.IdempotentKey); err != nil {
		return nil, err
	} else if found {
		return s.replay(prior)
	}

	agg, err := s.acquireWithBackoff(ctx, req.UserID)
	if err != nil {
		if errs.IsAggregateLockedError(err) {
			s.logger.Warn("Lock acquisition attempts exhausted", map[string]any{
				"user_id":        req.UserID,
				"idempotent_key": req.IdempotentKey,
			})
		}
		return nil, err
	}

	// Re-check under the lock: a concurrent duplicate may have committed
	// between the pre-check and the acquisition.
	if prior, found, err := s.idempotency.Check(ctx, req.IdempotentKey); err != nil {
		s.release(ctx, req.UserID)
		return nil, err
	} else if found {
		s.release(ctx, req.UserID)
		return s.replay(prior)
	}

	txn, err := entity.NewTransaction(req.UserID, req.IdempotentKey, req.Amount, req.Type, s.timeProvider)
	if err != nil {
		s.release(ctx, req.UserID)
		return nil, err
	}

	if txn.IsDebit() {
		if _, err := agg.Debited(amount); err != nil {
			return s.reject(ctx, agg, txn, err)
		}
	}

	return s.apply(ctx, agg, txn, amount)
}

// reject records a refused debit and releases the lock; the balance is
// never mutated on this path
func (s *Service) reject(ctx context.Context, agg *entity.BalanceAggregate, txn *entity.Transaction, cause error) (*SubmitResult, error) {
	txn.MarkRejected(agg.Balance)

	stored, created, err := s.transactions.CreateIfAbsent(ctx, txn)
	if err != nil {
		s.release(ctx, txn.UserID)
		return nil, err
	}
	if !created {
		s.release(ctx, txn.UserID)
		return s.replay(stored)
	}

	s.release(ctx, txn.UserID)

	s.logger.Info("Debit rejected, balance would go negative", map[string]any{
		"user_id":        txn.UserID,
		"idempotent_key": txn.IdempotentKey,
		"amount":         entity.FormatAmount(txn.Amount),
		"balance":        agg.FormattedBalance(),
	})

	return &SubmitResult{
		UserID:        txn.UserID,
		IdempotentKey: txn.IdempotentKey,
		Status:        entity.StatusRejected,
		Balance:       agg.FormattedBalance(),
	}, cause
}

// apply writes the transaction record, then commits the new balance and
// releases the lock in one conditional write
func (s *Service) apply(ctx context.Context, agg *entity.BalanceAggregate, txn *entity.Transaction, amount decimal.Decimal) (*SubmitResult, error) {
	var newBalance decimal.Decimal
	if txn.IsCredit() {
		newBalance = agg.Credited(amount)
	} else {
		var err error
		newBalance, err = agg.Debited(amount)
		if err != nil {
			s.release(ctx, txn.UserID)
			return nil, err
		}
	}
	txn.MarkApplied(newBalance)

	stored, created, err := s.transactions.CreateIfAbsent(ctx, txn)
	if err != nil {
		s.release(ctx, txn.UserID)
		return nil, err
	}
	if !created {
		// Lost a write-once race on the key; the winner's record is the
		// outcome for this request.
		s.release(ctx, txn.UserID)
		return s.replay(stored)
	}

	if err := s.aggregates.CommitBalance(ctx, txn.UserID, newBalance); err != nil {
		if errs.IsBenignUnlockError(err) {
			// The safety net force-released the lock out from under this
			// holder. The record is written; nothing to release.
			s.logger.Warn("Lock abandoned by peer during commit", map[string]any{
				"user_id":        txn.UserID,
				"idempotent_key": txn.IdempotentKey,
			})
		} else {
			s.release(ctx, txn.UserID)
			return nil, err
		}
	}

	s.guard.CancelScheduledUnlock(ctx, txn.UserID)
	s.publishApplied(ctx, txn)

	return &SubmitResult{
		UserID:        txn.UserID,
		IdempotentKey: txn.IdempotentKey,
		Status:        entity.StatusApplied,
		Balance:       entity.FormatAmount(newBalance),
	}, nil
}

// acquireWithBackoff resolves contention between concurrent transactions
// for the same user with bounded exponential backoff
func (s *Service) acquireWithBackoff(ctx context.Context, userID string) (*entity.BalanceAggregate, error) {
	backoff := retry.NewExponential(s.retryCfg.BaseDelay)
	backoff = retry.WithCappedDuration(s.retryCfg.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(s.retryCfg.MaxAttempts, backoff)

	var agg *entity.BalanceAggregate
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		acquired, err := s.guard.Acquire(ctx, userID)
		if errs.IsAggregateLockedError(err) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		agg = acquired
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// replay converts a stored record into the result of this request. A
// rejected record replays its rejection, including the error.
func (s *Service) replay(prior *entity.Transaction) (*SubmitResult, error) {
	result := &SubmitResult{
		UserID:        prior.UserID,
		IdempotentKey: prior.IdempotentKey,
		Status:        prior.Status,
		Balance:       entity.FormatAmount(prior.ResultingBalance),
		Replayed:      true,
	}

	s.logger.Debug("Replaying stored transaction result", map[string]any{
		"user_id":        prior.UserID,
		"idempotent_key": prior.IdempotentKey,
		"status":         string(prior.Status),
	})

	if prior.Status == entity.StatusRejected {
		return result, errs.NewNegativeBalanceError(
			prior.UserID,
			entity.FormatAmount(prior.Amount),
			entity.FormatAmount(prior.ResultingBalance),
		)
	}
	return result, nil
}

// release runs the normal-path unlock; failures are already logged and the
// safety net re-armed inside the guard, so callers just continue
func (s *Service) release(ctx context.Context, userID string) {
	if err := s.guard.Release(ctx, userID, lock.TriggerNormal); err != nil {
		s.logger.Error("Normal-path release failed, safety net will clear the lock", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// publishApplied emits the applied event; best-effort only
func (s *Service) publishApplied(ctx context.Context, txn *entity.Transaction) {
	if s.publisher == nil {
		return
	}
	event := events.TransactionApplied{
		UserID:           txn.UserID,
		IdempotentKey:    txn.IdempotentKey,
		Amount:           entity.FormatAmount(txn.Amount),
		Type:             string(txn.Type),
		ResultingBalance: entity.FormatAmount(txn.ResultingBalance),
		AppliedAt:        s.timeProvider.Now(),
	}
	if err := s.publisher.PublishTransactionApplied(ctx, event); err != nil {
		s.logger.Warn("Failed to publish transaction applied event", map[string]any{
			"user_id":        txn.UserID,
			"idempotent_key": txn.IdempotentKey,
			"error":          err.Error(),
		})
	}
}

// IsRetryExhausted reports whether an error from Submit is the busy state
// left after the retry budget ran out
func IsRetryExhausted(err error) bool {
	return errors.Is(err, errs.ErrAggregateLocked)
}

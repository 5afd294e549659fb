package entity

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	errs "balanceledger/internal/domain/error"
)

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time { return p.now }

func (p *fixedTimeProvider) Since(t time.Time) time.Duration { return p.now.Sub(t) }

func (p *fixedTimeProvider) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func TestNewBalanceAggregate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tp := &fixedTimeProvider{now: now}

	t.Run("Creates locked zero-balance aggregate", func(t *testing.T) {
		agg, err := NewBalanceAggregate("user-1", tp)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", agg.UserID)
		assert.True(t, agg.Balance.IsZero())
		assert.True(t, agg.Locked)
		assert.Equal(t, int64(1), agg.LockVersion)
		assert.Equal(t, now, agg.CreatedAt)
		assert.Equal(t, now, agg.UpdatedAt)
	})

	t.Run("Rejects empty user ID", func(t *testing.T) {
		_, err := NewBalanceAggregate("", tp)
		assert.ErrorIs(t, err, errs.ErrInvalidUserID)
	})
}

func TestBalanceAggregate_Credited(t *testing.T) {
	agg := &BalanceAggregate{UserID: "user-1", Balance: decimal.RequireFromString("10.50")}

	next := agg.Credited(decimal.RequireFromString("0.50"))
	assert.Equal(t, "11", next.String())
	// The receiver is never mutated; the new balance is committed separately.
	assert.Equal(t, "10.5", agg.Balance.String())
}

func TestBalanceAggregate_Debited(t *testing.T) {
	t.Run("Sufficient balance", func(t *testing.T) {
		agg := &BalanceAggregate{UserID: "user-1", Balance: decimal.RequireFromString("1")}

		next, err := agg.Debited(decimal.RequireFromString("0.6"))
		assert.NoError(t, err)
		assert.Equal(t, "0.4", next.String())
	})

	t.Run("Debit to exactly zero is allowed", func(t *testing.T) {
		agg := &BalanceAggregate{UserID: "user-1", Balance: decimal.RequireFromString("5")}

		next, err := agg.Debited(decimal.RequireFromString("5"))
		assert.NoError(t, err)
		assert.True(t, next.IsZero())
	})

	t.Run("Debit below zero is rejected", func(t *testing.T) {
		agg := &BalanceAggregate{UserID: "user-1", Balance: decimal.RequireFromString("0.4")}

		_, err := agg.Debited(decimal.RequireFromString("0.6"))
		assert.Error(t, err)
		assert.True(t, errs.IsNegativeBalanceError(err))

		var nbErr *errs.NegativeBalanceError
		assert.ErrorAs(t, err, &nbErr)
		assert.Equal(t, "user-1", nbErr.UserID)
		assert.Equal(t, "0.6", nbErr.Amount)
		assert.Equal(t, "0.4", nbErr.CurrentBalance)
	})
}

func TestBalanceAggregate_FormattedBalance(t *testing.T) {
	agg := &BalanceAggregate{UserID: "user-1", Balance: decimal.RequireFromString("1.00")}
	assert.Equal(t, "1", agg.FormattedBalance())
}

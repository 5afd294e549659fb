package entity

import (
	"time"

	"github.com/shopspring/decimal"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
)

// BalanceAggregate is the per-user ledger record. The Locked flag is the
// serialization point for all balance mutations: a transaction may change
// the balance only while it holds Locked = true, and the flag is flipped
// through conditional writes in the persistence layer.
type BalanceAggregate struct {
	UserID      string
	Balance     decimal.Decimal
	Locked      bool
	LockVersion int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBalanceAggregate creates a fresh zero-balance aggregate for a user.
// Aggregates are created on the user's first transaction and start out
// locked, so creation doubles as the first lock acquisition.
func NewBalanceAggregate(userID string, timeProvider coreport.TimeProvider) (*BalanceAggregate, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}

	now := timeProvider.Now()
	return &BalanceAggregate{
		UserID:      userID,
		Balance:     decimal.Zero,
		Locked:      true,
		LockVersion: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Credited returns the balance after applying a credit
func (a *BalanceAggregate) Credited(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// Debited returns the balance after applying a debit, or ErrNegativeBalance
// when the debit would drop the balance below zero
func (a *BalanceAggregate) Debited(amount decimal.Decimal) (decimal.Decimal, error) {
	next := a.Balance.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero, errs.NewNegativeBalanceError(a.UserID, FormatAmount(amount), FormatAmount(a.Balance))
	}
	return next, nil
}

// FormattedBalance returns the balance as the API reports it
func (a *BalanceAggregate) FormattedBalance() string {
	return FormatAmount(a.Balance)
}

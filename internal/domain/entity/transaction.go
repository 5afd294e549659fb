package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
)

// TransactionType distinguishes credits from debits
type TransactionType string

// Transaction types
const (
	TypeCredit TransactionType = "CREDIT"
	TypeDebit  TransactionType = "DEBIT"
)

// TransactionStatus defines the terminal outcome recorded for a transaction
type TransactionStatus string

// Transaction statuses. Records are written exactly once per idempotency
// key and never move between statuses afterwards.
const (
	StatusApplied  TransactionStatus = "APPLIED"
	StatusRejected TransactionStatus = "REJECTED"
)

// Transaction is the write-once record kept per idempotency key. Replays
// of the same key return this record instead of re-applying the effect.
type Transaction struct {
	IdempotentKey    string
	UserID           string
	Amount           decimal.Decimal
	Type             TransactionType
	Status           TransactionStatus
	ResultingBalance decimal.Decimal
	CreatedAt        time.Time
}

// NewTransaction creates a pending transaction record with basic validation
func NewTransaction(
	userID string,
	idempotentKey string,
	amount string,
	txType string,
	timeProvider coreport.TimeProvider,
) (*Transaction, error) {
	if userID == "" {
		return nil, errs.ErrInvalidUserID
	}
	if idempotentKey == "" {
		return nil, errs.ErrInvalidIdempotentKey
	}
	if !IsValidTransactionType(txType) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidTransactionType, txType)
	}

	parsed, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		IdempotentKey: idempotentKey,
		UserID:        userID,
		Amount:        parsed,
		Type:          TransactionType(txType),
		CreatedAt:     timeProvider.Now(),
	}, nil
}

// MarkApplied records a committed transaction and the balance it produced
func (t *Transaction) MarkApplied(resultingBalance decimal.Decimal) {
	t.Status = StatusApplied
	t.ResultingBalance = resultingBalance
}

// MarkRejected records a refused debit; the balance stays unchanged
func (t *Transaction) MarkRejected(currentBalance decimal.Decimal) {
	t.Status = StatusRejected
	t.ResultingBalance = currentBalance
}

// IsCredit returns true if this transaction increases the balance
func (t *Transaction) IsCredit() bool {
	return t.Type == TypeCredit
}

// IsDebit returns true if this transaction decreases the balance
func (t *Transaction) IsDebit() bool {
	return t.Type == TypeDebit
}

// IsValidTransactionType validates the type string
func IsValidTransactionType(txType string) bool {
	return txType == string(TypeCredit) || txType == string(TypeDebit)
}

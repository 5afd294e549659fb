package transaction

import (
	"context"
	"errors"
	"fmt"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	"balanceledger/internal/domain/port/persistence"
)

// IdempotencyChecker looks up prior transaction records by idempotency key
type IdempotencyChecker struct {
	transactions persistence.TransactionRepository
}

// NewIdempotencyChecker creates a new IdempotencyChecker
func NewIdempotencyChecker(transactions persistence.TransactionRepository) *IdempotencyChecker {
	return &IdempotencyChecker{transactions: transactions}
}

// Check returns the stored record for the key if one exists. A found record
// means the transaction was already handled and its stored outcome must be
// replayed without reapplying the effect.
func (c *IdempotencyChecker) Check(ctx context.Context, idempotentKey string) (*entity.Transaction, bool, error) {
	txn, err := c.transactions.Get(ctx, idempotentKey)
	if errors.Is(err, errs.ErrTransactionNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return txn, true, nil
}

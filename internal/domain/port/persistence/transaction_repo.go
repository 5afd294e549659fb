package persistence

import (
	"context"

	"balanceledger/internal/domain/entity"
)

// TransactionRepository stores the write-once transaction record kept per
// idempotency key
type TransactionRepository interface {
	// Get retrieves a transaction by its idempotency key
	//
	// Possible errors:
	// - ErrTransactionNotFound: no record exists for this key
	// - ErrDatabaseConnection: the store cannot be reached
	Get(ctx context.Context, idempotentKey string) (*entity.Transaction, error)

	// CreateIfAbsent writes the record unless one already exists for the
	// key. When a concurrent writer won the race, the existing record is
	// returned with created == false and the caller treats the request as
	// already handled.
	//
	// Possible errors:
	// - ErrDatabaseConnection: the store cannot be reached
	CreateIfAbsent(ctx context.Context, txn *entity.Transaction) (existing *entity.Transaction, created bool, err error)
}

package persistence

import (
	"context"

	"github.com/shopspring/decimal"

	"balanceledger/internal/domain/entity"
)

// AggregateRepository defines the conditional-write operations on the
// per-user balance aggregate. All mutations are single conditional writes;
// the repository never takes in-process locks, correctness comes from the
// store's compare-and-swap semantics on the Locked flag.
type AggregateRepository interface {
	// Get retrieves the aggregate for a user
	//
	// Possible errors:
	// - ErrAggregateNotFound: no aggregate exists for this user yet
	// - ErrDatabaseConnection: the store cannot be reached
	Get(ctx context.Context, userID string) (*entity.BalanceAggregate, error)

	// CreateLocked creates a zero-balance aggregate with Locked = true.
	// Used on a user's first transaction so creation doubles as the first
	// lock acquisition.
	//
	// Possible errors:
	// - ErrAggregateExists: a concurrent first transaction won the create race
	// - ErrDatabaseConnection: the store cannot be reached
	CreateLocked(ctx context.Context, userID string) (*entity.BalanceAggregate, error)

	// Lock flips Locked false -> true with a conditional write. Never blocks.
	//
	// Possible errors:
	// - ErrAggregateLocked: the lock is held by another transaction
	// - ErrAggregateNotFound: no aggregate exists for this user
	// - ErrDatabaseConnection: the store cannot be reached
	Lock(ctx context.Context, userID string) error

	// Unlock flips Locked true -> false with a conditional write.
	//
	// Possible errors:
	// - ErrAggregateNotLocked: the aggregate was already unlocked; benign
	//   when racing the safety-net unlock
	// - ErrDatabaseConnection: the store cannot be reached
	Unlock(ctx context.Context, userID string) error

	// CommitBalance writes the new balance and releases the lock in one
	// conditional write requiring Locked == true.
	//
	// Possible errors:
	// - ErrAggregateNotLocked: the lock was released underneath the holder
	// - ErrDatabaseConnection: the store cannot be reached
	CommitBalance(ctx context.Context, userID string, balance decimal.Decimal) error
}

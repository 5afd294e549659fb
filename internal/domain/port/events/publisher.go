package events

import (
	"context"
	"time"
)

// TransactionApplied is emitted after a transaction commits. Consumers use
// it for downstream bookkeeping; publishing is best-effort and never blocks
// the transaction outcome.
type TransactionApplied struct {
	UserID           string    `json:"userId"`
	IdempotentKey    string    `json:"idempotentKey"`
	Amount           string    `json:"amount"`
	Type             string    `json:"type"`
	ResultingBalance string    `json:"resultingBalance"`
	AppliedAt        time.Time `json:"appliedAt"`
}

// Publisher emits domain events to interested consumers
type Publisher interface {
	PublishTransactionApplied(ctx context.Context, event TransactionApplied) error
}

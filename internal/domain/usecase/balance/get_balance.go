package balance

import (
	"context"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/port/persistence"
)

// UseCase reads the current balance for a user
type UseCase struct {
	aggregates persistence.AggregateRepository
	logger     coreport.Logger
}

// NewUseCase creates a new balance use case
func NewUseCase(aggregates persistence.AggregateRepository, logger coreport.Logger) *UseCase {
	return &UseCase{aggregates: aggregates, logger: logger}
}

// GetBalance returns the formatted balance for a user. Users without an
// aggregate have never transacted; that surfaces as ErrAggregateNotFound.
func (u *UseCase) GetBalance(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errs.ErrInvalidUserID
	}

	agg, err := u.aggregates.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return agg.FormattedBalance(), nil
}

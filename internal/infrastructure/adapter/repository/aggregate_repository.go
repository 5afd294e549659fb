package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/infrastructure/adapter/database"
	"balanceledger/internal/infrastructure/adapter/model"
)

// AggregateRepository implements the aggregate port with gorm. Every
// mutation is a single guarded UPDATE; the RowsAffected check is what
// turns the statement into a compare-and-swap on the Locked flag.
type AggregateRepository struct {
	db           *gorm.DB
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	errorMapper  *database.ErrorMapper
}

// NewAggregateRepository creates a new AggregateRepository instance
func NewAggregateRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *AggregateRepository {
	return &AggregateRepository{
		db:           db,
		timeProvider: timeProvider,
		logger:       logger,
		errorMapper:  database.NewErrorMapper(),
	}
}

// Get retrieves the aggregate for a user
func (r *AggregateRepository) Get(ctx context.Context, userID string) (*entity.BalanceAggregate, error) {
	var m model.BalanceAggregate
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if r.errorMapper.IsNotFound(err) {
		return nil, errs.ErrAggregateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read aggregate: %w", r.errorMapper.MapError(err))
	}
	return m.ToEntity(), nil
}

// CreateLocked creates a zero-balance aggregate that already holds the lock
func (r *AggregateRepository) CreateLocked(ctx context.Context, userID string) (*entity.BalanceAggregate, error) {
	agg, err := entity.NewBalanceAggregate(userID, r.timeProvider)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Create(model.AggregateFromEntity(agg)).Error
	if r.errorMapper.IsDuplicateKey(err) {
		return nil, errs.ErrAggregateExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregate: %w", r.errorMapper.MapError(err))
	}

	r.logger.Info("Created balance aggregate for first transaction", map[string]any{
		"user_id": userID,
	})
	return agg, nil
}

// Lock flips locked false -> true; RowsAffected == 0 means the condition
// failed and the lock is held elsewhere
func (r *AggregateRepository) Lock(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.BalanceAggregate{}).
		Where("user_id = ? AND locked = ?", userID, false).
		Updates(map[string]any{
			"locked":       true,
			"lock_version": gorm.Expr("lock_version + 1"),
			"updated_at":   r.timeProvider.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to lock aggregate: %w", r.errorMapper.MapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return r.conditionFailed(ctx, userID, errs.ErrAggregateLocked)
	}
	return nil
}

// Unlock flips locked true -> false; RowsAffected == 0 means the aggregate
// was already unlocked
func (r *AggregateRepository) Unlock(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.BalanceAggregate{}).
		Where("user_id = ? AND locked = ?", userID, true).
		Updates(map[string]any{
			"locked":       false,
			"lock_version": gorm.Expr("lock_version + 1"),
			"updated_at":   r.timeProvider.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to unlock aggregate: %w", r.errorMapper.MapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return r.conditionFailed(ctx, userID, errs.ErrAggregateNotLocked)
	}
	return nil
}

// CommitBalance writes the new balance and releases the lock in one
// conditional statement
func (r *AggregateRepository) CommitBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.BalanceAggregate{}).
		Where("user_id = ? AND locked = ?", userID, true).
		Updates(map[string]any{
			"balance":      balance,
			"locked":       false,
			"lock_version": gorm.Expr("lock_version + 1"),
			"updated_at":   r.timeProvider.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to commit balance: %w", r.errorMapper.MapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return r.conditionFailed(ctx, userID, errs.ErrAggregateNotLocked)
	}
	return nil
}

// conditionFailed distinguishes a failed lock condition from a missing
// aggregate, since both update zero rows
func (r *AggregateRepository) conditionFailed(ctx context.Context, userID string, conditionErr error) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.BalanceAggregate{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check aggregate existence: %w", r.errorMapper.MapError(err))
	}
	if count == 0 {
		return errs.ErrAggregateNotFound
	}
	return conditionErr
}

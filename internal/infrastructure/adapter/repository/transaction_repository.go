package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/infrastructure/adapter/database"
	"balanceledger/internal/infrastructure/adapter/model"
)

// TransactionRepository implements the write-once idempotency store with gorm
type TransactionRepository struct {
	db          *gorm.DB
	logger      coreport.Logger
	errorMapper *database.ErrorMapper
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:          db,
		logger:      logger,
		errorMapper: database.NewErrorMapper(),
	}
}

// Get retrieves a transaction by its idempotency key
func (r *TransactionRepository) Get(ctx context.Context, idempotentKey string) (*entity.Transaction, error) {
	var m model.Transaction
	err := r.db.WithContext(ctx).Where("idempotent_key = ?", idempotentKey).First(&m).Error
	if r.errorMapper.IsNotFound(err) {
		return nil, errs.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", r.errorMapper.MapError(err))
	}
	return m.ToEntity(), nil
}

// CreateIfAbsent inserts the record unless the key already exists. Losers
// of the write-once race read back the winner's record so both callers see
// the same outcome.
func (r *TransactionRepository) CreateIfAbsent(ctx context.Context, txn *entity.Transaction) (*entity.Transaction, bool, error) {
	err := r.db.WithContext(ctx).Create(model.TransactionFromEntity(txn)).Error
	if err == nil {
		return txn, true, nil
	}

	if !r.errorMapper.IsDuplicateKey(err) {
		return nil, false, fmt.Errorf("failed to create transaction: %w", r.errorMapper.MapError(err))
	}

	r.logger.Debug("Idempotency key already written, reading winner's record", map[string]any{
		"idempotent_key": txn.IdempotentKey,
		"user_id":        txn.UserID,
	})

	existing, getErr := r.Get(ctx, txn.IdempotentKey)
	if getErr != nil {
		return nil, false, fmt.Errorf("failed to read existing transaction after conflict: %w", getErr)
	}
	return existing, false, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"

	"balanceledger/internal/domain/entity"
)

// Transaction is the database model for the write-once idempotency record
type Transaction struct {
	IdempotentKey    string          `gorm:"primaryKey;size:255"`
	UserID           string          `gorm:"not null;index;size:255"`
	Amount           decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Type             string          `gorm:"not null;size:16"`
	Status           string          `gorm:"not null;size:16"`
	ResultingBalance decimal.Decimal `gorm:"type:numeric(20,2)"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// ToEntity converts the model to a domain entity
func (m *Transaction) ToEntity() *entity.Transaction {
	return &entity.Transaction{
		IdempotentKey:    m.IdempotentKey,
		UserID:           m.UserID,
		Amount:           m.Amount,
		Type:             entity.TransactionType(m.Type),
		Status:           entity.TransactionStatus(m.Status),
		ResultingBalance: m.ResultingBalance,
		CreatedAt:        m.CreatedAt,
	}
}

// TransactionFromEntity converts a domain entity to the database model
func TransactionFromEntity(e *entity.Transaction) *Transaction {
	return &Transaction{
		IdempotentKey:    e.IdempotentKey,
		UserID:           e.UserID,
		Amount:           e.Amount,
		Type:             string(e.Type),
		Status:           string(e.Status),
		ResultingBalance: e.ResultingBalance,
		CreatedAt:        e.CreatedAt,
	}
}

package model

import (
	"time"

	"github.com/shopspring/decimal"

	"balanceledger/internal/domain/entity"
)

// BalanceAggregate is the database model for the per-user ledger record
type BalanceAggregate struct {
	UserID      string          `gorm:"primaryKey;size:255"`
	Balance     decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Locked      bool            `gorm:"not null;default:false"`
	LockVersion int64           `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName specifies the table name for BalanceAggregate
func (BalanceAggregate) TableName() string {
	return "balance_aggregates"
}

// ToEntity converts the model to a domain entity
func (m *BalanceAggregate) ToEntity() *entity.BalanceAggregate {
	return &entity.BalanceAggregate{
		UserID:      m.UserID,
		Balance:     m.Balance,
		Locked:      m.Locked,
		LockVersion: m.LockVersion,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// AggregateFromEntity converts a domain entity to the database model
func AggregateFromEntity(e *entity.BalanceAggregate) *BalanceAggregate {
	return &BalanceAggregate{
		UserID:      e.UserID,
		Balance:     e.Balance,
		Locked:      e.Locked,
		LockVersion: e.LockVersion,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

package transaction

import (
	"github.com/shopspring/decimal"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
)

// Validator checks submit requests before any store access
type Validator struct{}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSubmit validates all request fields and returns the parsed amount
func (v *Validator) ValidateSubmit(req SubmitRequest) (decimal.Decimal, error) {
	if req.UserID == "" {
		return decimal.Zero, errs.ErrInvalidUserID
	}
	if req.IdempotentKey == "" {
		return decimal.Zero, errs.ErrInvalidIdempotentKey
	}
	if !entity.IsValidTransactionType(req.Type) {
		return decimal.Zero, errs.ErrInvalidTransactionType
	}
	return entity.ParseAmount(req.Amount)
}

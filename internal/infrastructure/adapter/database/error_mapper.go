package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	errs "balanceledger/internal/domain/error"
)

// ErrorMapper classifies database errors into domain errors
type ErrorMapper struct{}

// NewErrorMapper creates a new ErrorMapper
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// IsDuplicateKey reports whether the error is a unique constraint violation
func (m *ErrorMapper) IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

// IsNotFound reports whether the error is a missing-record error
func (m *ErrorMapper) IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// MapError maps an infrastructure error to a domain error, keeping
// not-found semantics to the caller since they are entity-specific
func (m *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no connection"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"):
		return errs.ErrDatabaseConnection
	default:
		return err
	}
}

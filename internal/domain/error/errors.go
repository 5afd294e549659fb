package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses and log correlation
const (
	// 4xxx - Client errors
	CodeNegativeBalance        = 4001
	CodeInvalidAmount          = 4002
	CodeInvalidUserID          = 4003
	CodeInvalidIdempotentKey   = 4004
	CodeInvalidTransactionType = 4005
	CodeAggregateNotFound      = 4040
	CodeAggregateLocked        = 4090

	// 5xxx - Server errors
	CodeInternalServer    = 5000
	CodeSchedulingFailure = 5001
)

// Base error types
var (
	// ErrNegativeBalance is returned when a debit would drop the balance below zero
	ErrNegativeBalance = errors.New("balance cannot be negative")

	// ErrInvalidAmount is returned when the transaction amount is not a positive decimal
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidUserID is returned when the user ID is empty
	ErrInvalidUserID = errors.New("user ID cannot be empty")

	// ErrInvalidIdempotentKey is returned when the idempotency key is empty
	ErrInvalidIdempotentKey = errors.New("idempotent key cannot be empty")

	// ErrInvalidTransactionType is returned when the type is neither CREDIT nor DEBIT
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrAggregateNotFound is returned when no balance aggregate exists for the user
	ErrAggregateNotFound = errors.New("balance aggregate not found")

	// ErrAggregateExists is returned when creating an aggregate that already exists
	ErrAggregateExists = errors.New("balance aggregate already exists")

	// ErrAggregateLocked is returned when the aggregate lock is held by another transaction
	ErrAggregateLocked = errors.New("balance aggregate is locked by another transaction")

	// ErrAggregateNotLocked is returned when a conditional unlock finds the lock already released
	ErrAggregateNotLocked = errors.New("balance aggregate is not locked")

	// ErrTransactionNotFound is returned when no record exists for an idempotency key
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionExists is returned when a record for the idempotency key was already written
	ErrTransactionExists = errors.New("transaction with this idempotent key already exists")

	// ErrActionConflict is returned when a delayed action with the same name is already pending
	ErrActionConflict = errors.New("delayed action already scheduled")

	// ErrActionNotFound is returned when cancelling a delayed action that is not pending
	ErrActionNotFound = errors.New("delayed action not found")

	// ErrSchedulingFailure is returned when the delayed-action scheduler is unavailable
	ErrSchedulingFailure = errors.New("failed to schedule delayed action")

	// ErrDatabaseConnection is returned when the ledger store cannot be reached
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrInvalidRequest is returned when the request format is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns the standardized code for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrNegativeBalance):
		return CodeNegativeBalance
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidUserID):
		return CodeInvalidUserID
	case errors.Is(err, ErrInvalidIdempotentKey):
		return CodeInvalidIdempotentKey
	case errors.Is(err, ErrInvalidTransactionType):
		return CodeInvalidTransactionType
	case errors.Is(err, ErrAggregateNotFound):
		return CodeAggregateNotFound
	case errors.Is(err, ErrAggregateLocked):
		return CodeAggregateLocked
	case errors.Is(err, ErrSchedulingFailure):
		return CodeSchedulingFailure
	default:
		return CodeInternalServer
	}
}

// NegativeBalanceError carries the rejection context for a refused debit
type NegativeBalanceError struct {
	UserID         string
	Amount         string
	CurrentBalance string
}

// Error implements the error interface
func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("debit of %s rejected for user %s: current balance %s cannot go negative",
		e.Amount, e.UserID, e.CurrentBalance)
}

// Is checks if the target error is an ErrNegativeBalance
func (e *NegativeBalanceError) Is(target error) bool {
	return target == ErrNegativeBalance
}

// LogFields returns a map of fields for structured logging
func (e *NegativeBalanceError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "negative_balance",
		"user_id":         e.UserID,
		"amount":          e.Amount,
		"current_balance": e.CurrentBalance,
		"error_code":      CodeNegativeBalance,
	}
}

// NewNegativeBalanceError creates a new detailed negative balance error
func NewNegativeBalanceError(userID, amount, currentBalance string) error {
	return &NegativeBalanceError{
		UserID:         userID,
		Amount:         amount,
		CurrentBalance: currentBalance,
	}
}

// LockError wraps a failure of a lock protocol operation
type LockError struct {
	UserID string
	Op     string
	Err    error
}

// Error implements the error interface
func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s failed for user %s: %v", e.Op, e.UserID, e.Err)
}

// Unwrap returns the underlying error
func (e *LockError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *LockError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "lock_error",
		"user_id":    e.UserID,
		"operation":  e.Op,
		"error":      e.Err.Error(),
		"error_code": ErrorCode(e.Err),
	}
}

// NewLockError creates a lock protocol error for the given operation
func NewLockError(userID, op string, err error) error {
	return &LockError{UserID: userID, Op: op, Err: err}
}

// IsNegativeBalanceError checks if the error is a negative balance rejection
func IsNegativeBalanceError(err error) bool {
	return errors.Is(err, ErrNegativeBalance)
}

// IsAggregateLockedError checks if the error signals lock contention
func IsAggregateLockedError(err error) bool {
	return errors.Is(err, ErrAggregateLocked)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrAggregateNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsBenignUnlockError checks if a failed conditional unlock simply found the
// aggregate already unlocked, an expected race with the safety-net unlock
func IsBenignUnlockError(err error) bool {
	return errors.Is(err, ErrAggregateNotLocked)
}

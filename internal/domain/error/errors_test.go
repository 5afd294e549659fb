package error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"negative balance", ErrNegativeBalance, CodeNegativeBalance},
		{"invalid amount", ErrInvalidAmount, CodeInvalidAmount},
		{"invalid user ID", ErrInvalidUserID, CodeInvalidUserID},
		{"invalid idempotent key", ErrInvalidIdempotentKey, CodeInvalidIdempotentKey},
		{"invalid transaction type", ErrInvalidTransactionType, CodeInvalidTransactionType},
		{"aggregate not found", ErrAggregateNotFound, CodeAggregateNotFound},
		{"aggregate locked", ErrAggregateLocked, CodeAggregateLocked},
		{"scheduling failure", ErrSchedulingFailure, CodeSchedulingFailure},
		{"wrapped error keeps its code", fmt.Errorf("context: %w", ErrInvalidAmount), CodeInvalidAmount},
		{"unknown error", errors.New("boom"), CodeInternalServer},
		{"nil error", nil, CodeInternalServer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ErrorCode(tc.err))
		})
	}
}

func TestNegativeBalanceError(t *testing.T) {
	err := NewNegativeBalanceError("user-1", "0.6", "0.4")

	t.Run("matches the sentinel", func(t *testing.T) {
		assert.ErrorIs(t, err, ErrNegativeBalance)
		assert.True(t, IsNegativeBalanceError(err))
	})

	t.Run("carries rejection context", func(t *testing.T) {
		var nbErr *NegativeBalanceError
		assert.ErrorAs(t, err, &nbErr)
		assert.Equal(t, "user-1", nbErr.UserID)
		assert.Equal(t, "0.6", nbErr.Amount)
		assert.Equal(t, "0.4", nbErr.CurrentBalance)
	})

	t.Run("log fields", func(t *testing.T) {
		var nbErr *NegativeBalanceError
		assert.ErrorAs(t, err, &nbErr)

		fields := nbErr.LogFields()
		assert.Equal(t, "negative_balance", fields["error_type"])
		assert.Equal(t, "user-1", fields["user_id"])
		assert.Equal(t, CodeNegativeBalance, fields["error_code"])
	})
}

func TestLockError(t *testing.T) {
	cause := ErrDatabaseConnection
	err := NewLockError("user-1", "release", cause)

	t.Run("unwraps to the cause", func(t *testing.T) {
		assert.ErrorIs(t, err, ErrDatabaseConnection)
	})

	t.Run("message names the operation", func(t *testing.T) {
		assert.Contains(t, err.Error(), "release")
		assert.Contains(t, err.Error(), "user-1")
	})

	t.Run("log fields carry the cause code", func(t *testing.T) {
		var lockErr *LockError
		assert.ErrorAs(t, err, &lockErr)

		fields := lockErr.LogFields()
		assert.Equal(t, "lock_error", fields["error_type"])
		assert.Equal(t, "release", fields["operation"])
	})
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsAggregateLockedError(ErrAggregateLocked))
	assert.True(t, IsAggregateLockedError(fmt.Errorf("wrapped: %w", ErrAggregateLocked)))
	assert.False(t, IsAggregateLockedError(ErrAggregateNotLocked))

	assert.True(t, IsNotFoundError(ErrAggregateNotFound))
	assert.True(t, IsNotFoundError(ErrTransactionNotFound))
	assert.False(t, IsNotFoundError(ErrAggregateLocked))

	assert.True(t, IsBenignUnlockError(ErrAggregateNotLocked))
	assert.True(t, IsBenignUnlockError(NewLockError("user-1", "release", ErrAggregateNotLocked)))
	assert.False(t, IsBenignUnlockError(ErrAggregateLocked))
}

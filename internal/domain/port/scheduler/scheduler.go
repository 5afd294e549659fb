package scheduler

import (
	"context"
	"time"
)

// DelayedActionScheduler fires a named one-shot action at an absolute time
// in the future. Action names are deterministic, so at most one action per
// name is pending at a time. The scheduler retries failed invocations on
// its own; callers never re-schedule after a failed run.
type DelayedActionScheduler interface {
	// Schedule registers an action to fire at fireAt
	//
	// Possible errors:
	// - ErrActionConflict: an action with this name is already pending
	// - ErrSchedulingFailure: the scheduler cannot be reached
	Schedule(ctx context.Context, name string, fireAt time.Time, payload []byte) error

	// Cancel removes a pending action by name
	//
	// Possible errors:
	// - ErrActionNotFound: no action with this name is pending; benign
	// - ErrSchedulingFailure: the scheduler cannot be reached
	Cancel(ctx context.Context, name string) error
}

package scheduler

import (
	"context"
	"sync"
	"time"

	errs "balanceledger/internal/domain/error"
)

type inmemAction struct {
	fireAt  time.Time
	payload []byte
}

// InMem is a process-local scheduler for single-instance deployments and
// tests. Same contract as the redis adapter, but actions do not survive a
// restart, so it offers no crash safety across processes.
type InMem struct {
	mu      sync.Mutex
	actions map[string]inmemAction
}

// NewInMem creates an in-memory scheduler
func NewInMem() *InMem {
	return &InMem{actions: make(map[string]inmemAction)}
}

// Schedule registers a one-shot action
func (s *InMem) Schedule(_ context.Context, name string, fireAt time.Time, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[name]; exists {
		return errs.ErrActionConflict
	}
	s.actions[name] = inmemAction{fireAt: fireAt, payload: payload}
	return nil
}

// Cancel removes a pending action by name
func (s *InMem) Cancel(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[name]; !exists {
		return errs.ErrActionNotFound
	}
	delete(s.actions, name)
	return nil
}

// Due returns all actions whose fire time has passed
func (s *InMem) Due(_ context.Context, now time.Time) ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Action
	for name, action := range s.actions {
		if !action.fireAt.After(now) {
			due = append(due, Action{Name: name, Payload: action.payload})
		}
	}
	return due, nil
}

// Remove deletes a completed action
func (s *InMem) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.actions, name)
	return nil
}

// Pending reports whether an action with the given name is scheduled
func (s *InMem) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.actions[name]
	return exists
}

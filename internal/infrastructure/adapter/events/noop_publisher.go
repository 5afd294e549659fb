package events

import (
	"context"

	"balanceledger/internal/domain/port/events"
)

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// PublishTransactionApplied discards the event
func (p *NoopPublisher) PublishTransactionApplied(context.Context, events.TransactionApplied) error {
	return nil
}

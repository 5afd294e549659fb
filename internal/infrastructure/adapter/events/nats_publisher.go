package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/port/events"
)

// SubjectTransactionApplied is the NATS subject for committed transactions
const SubjectTransactionApplied = "ledger.transactions.applied"

// NatsPublisher emits domain events over NATS
type NatsPublisher struct {
	conn   *nats.Conn
	logger coreport.Logger
}

// NewNatsPublisher creates a NATS-backed event publisher
func NewNatsPublisher(conn *nats.Conn, logger coreport.Logger) *NatsPublisher {
	return &NatsPublisher{conn: conn, logger: logger}
}

// PublishTransactionApplied publishes a committed transaction event
func (p *NatsPublisher) PublishTransactionApplied(_ context.Context, event events.TransactionApplied) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.conn.Publish(SubjectTransactionApplied, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Package nop provides a publisher that discards events.
package nop

import (
	"context"

	"github.com/papercomputeco/counsel/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used when publishing is disabled.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishExchange validates input and otherwise does nothing.
func (p *Publisher) PublishExchange(_ context.Context, event *eventstream.ExchangeRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

// Package logging publishes domain events to the structured log, for deployments without an event bus.
package logging

import (
	"context"

	"recommender/domain/events"

	"go.uber.org/zap"
)

// Publisher writes one log entry per event
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a log publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger.Named("events")}
}

// Publish logs a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch logs every event
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

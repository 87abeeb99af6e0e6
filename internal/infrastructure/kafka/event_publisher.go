package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/debitcard/internal/domain/event"
	pkgkafka "github.com/bibbank/debitcard/pkg/kafka"
)

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// EventPublisher implements port.EventPublisher on Kafka. Messages are keyed
// by aggregate id so events of one card stay ordered within a partition.
type EventPublisher struct {
	producer Publisher
	logger   *slog.Logger
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(producer Publisher, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		logger:   logger,
	}
}

// Publish sends domain events to topic.
func (p *EventPublisher) Publish(ctx context.Context, topic string, events ...event.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(events))
	for _, evt := range events {
		msg, err := toMessage(evt)
		if err != nil {
			return err
		}

		p.logger.DebugContext(ctx, "publishing event to Kafka",
			slog.String("topic", topic),
			slog.String("event_type", evt.EventType()),
			slog.String("event_id", evt.EventID()),
			slog.Int("payload_size", len(msg.Value)),
		)
		messages = append(messages, msg)
	}

	if err := p.producer.Publish(ctx, topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", topic, err)
	}
	return nil
}

func toMessage(evt event.DomainEvent) (pkgkafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", evt.EventType(), err)
	}

	return pkgkafka.Message{
		Key:   []byte(evt.AggregateID()),
		Value: payload,
		Headers: map[string]string{
			"event_type":     evt.EventType(),
			"event_id":       evt.EventID(),
			"aggregate_type": evt.AggregateType(),
			"occurred_at":    evt.OccurredAt().Format(time.RFC3339Nano),
		},
	}, nil
}

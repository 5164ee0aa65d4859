// Package messaging publishes canonical events to downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes canonical events to a Kafka topic keyed by integration
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher on the given brokers
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish writes one event. Events of the same integration share a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.CanonicalEvent) error {
	if event == nil {
		return errors.New("messaging: nil event")
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(partitionKey(event)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "platform", Value: []byte(event.Platform)},
			{Key: "event_type", Value: []byte(event.EventType())},
		},
		Time: event.ReceivedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType()).
		Msg("Event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func partitionKey(event *domain.CanonicalEvent) string {
	if event.Attributed() {
		return *event.IntegrationID
	}
	return "platform:" + string(event.Platform)
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.CanonicalEvent) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

// MultiPublisher publishes to every target and joins their errors
type MultiPublisher []ports.EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event *domain.CanonicalEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.EventPublisher = (*KafkaPublisher)(nil)
	_ ports.EventPublisher = NoopPublisher{}
	_ ports.EventPublisher = MultiPublisher(nil)
)

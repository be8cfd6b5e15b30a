package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaBus.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus writes every event to a Kafka topic keyed by order id, then
// delivers it to local subscribers.
type KafkaBus struct {
	logger *zap.Logger
	writer MessageWriter
	local  *InMemoryBus
}

// NewKafkaWriter creates the writer for the events topic.
func NewKafkaWriter(brokers []string, topic string, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaBus creates a Kafka backed event bus
func NewKafkaBus(writer MessageWriter, logger *zap.Logger) *KafkaBus {
	return &KafkaBus{
		logger: logger.Named("kafka-event-bus"),
		writer: writer,
		local:  NewInMemoryBus(logger),
	}
}

// Publish writes event to Kafka. Local subscribers see it only once the
// write succeeded.
func (bus *KafkaBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := bus.writer.WriteMessages(ctx, msg); err != nil {
		bus.logger.Error("Failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.String("key", event.Key()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return bus.local.Publish(ctx, event)
}

// Subscribe registers a local handler for a topic
func (bus *KafkaBus) Subscribe(topic string, handler Handler) {
	bus.local.Subscribe(topic, handler)
}

// Close flushes local deliveries and closes the writer.
func (bus *KafkaBus) Close() error {
	bus.local.Wait()
	return bus.writer.Close()
}

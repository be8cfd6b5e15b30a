package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

const readBackoff = time.Second

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dispatcher receives decoded inbound messages.
type Dispatcher interface {
	OnMessage(ctx context.Context, msg *adapter.Message) error
}

// NewReader creates the inbound consumer group reader.
func NewReader(brokers []string, topic, groupID string, logger *zap.Logger) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MaxBytes:    1 << 20,
		StartOffset: kafka.FirstOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	})
}

// Consumer reads inbound messages and dispatches them one at a time.
type Consumer struct {
	logger     *zap.Logger
	reader     Reader
	dispatcher Dispatcher
}

// NewConsumer creates a consumer feeding dispatcher
func NewConsumer(reader Reader, dispatcher Dispatcher, logger *zap.Logger) *Consumer {
	return &Consumer{
		logger:     logger.Named("bridge-consumer"),
		reader:     reader,
		dispatcher: dispatcher,
	}
}

// Run consumes until ctx is cancelled or the reader is closed. Every message
// is committed once handled, including the ones that were dropped.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Started consuming inbound messages")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("Inbound consumer stopped")
				return nil
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readBackoff):
			}
			continue
		}

		c.handle(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to commit message",
				zap.String("key", string(m.Key)),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	msg, err := Decode(m.Value)
	if err != nil {
		c.logger.Error("Failed to decode inbound message",
			zap.String("key", string(m.Key)),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		return
	}
	if err := c.dispatcher.OnMessage(ctx, msg); err != nil {
		c.logger.Warn("Inbound message dropped",
			zap.String("key", string(m.Key)),
			zap.String("msg_type", string(msg.Type)),
			zap.String("kind", apperrors.KindOf(err)),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Decode parses the inbound wire format:
// {"msg_type":"8","session_id":"...","fields":{"11":"X_2","150":"F"}}.
func Decode(data []byte) (*adapter.Message, error) {
	var msg adapter.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid inbound message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("invalid inbound message: msg_type is required")
	}
	if msg.Fields == nil {
		msg.Fields = make(map[adapter.Tag]string)
	}
	return &msg, nil
}

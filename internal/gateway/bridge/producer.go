// Package bridge connects the gateway adapter to an external protocol engine
// over Kafka: outbound requests are written to one topic and inbound
// application messages are read from another.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
)

// Writer is the subset of *kafka.Writer used by Producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates the outbound requests writer. Messages are hashed on
// the order id so every request of one order lands on one partition.
func NewWriter(brokers []string, topic string, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}
}

// Producer hands outbound requests to the protocol engine. It implements
// adapter.Session.
type Producer struct {
	logger *zap.Logger
	writer Writer
}

var _ adapter.Session = (*Producer)(nil)

// NewProducer creates a producer on top of writer
func NewProducer(writer Writer, logger *zap.Logger) *Producer {
	return &Producer{
		logger: logger.Named("bridge-producer"),
		writer: writer,
	}
}

// Send encodes req and writes it keyed by order id.
func (p *Producer) Send(ctx context.Context, req *adapter.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request %s: %w", req.RequestID, err)
	}
	msg := kafka.Message{
		Key:   []byte(req.OrderID),
		Value: data,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "msg_type", Value: []byte(req.MsgType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write request %s: %w", req.RequestID, err)
	}
	p.logger.Debug("Request written",
		zap.String("order_id", req.OrderID),
		zap.String("cl_ord_id", req.RequestID),
		zap.String("msg_type", string(req.MsgType)),
	)
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
)

// TopicOrders carries order lifecycle responses.
const TopicOrders = "orders"

// Lifecycle response types published by the gateway.
const (
	TypeNewAck     = "ORDER_NEW_ACK"
	TypeNewRej     = "ORDER_NEW_REJ"
	TypeReplaceAck = "ORDER_REPLACE_ACK"
	TypeReplaceRej = "ORDER_REPLACE_REJ"
	TypeCancelAck  = "ORDER_CANCEL_ACK"
	TypeCancelRej  = "ORDER_CANCEL_REJ"
	TypeExecution  = "ORDER_EXECUTION"
)

// Event is a lifecycle response published on the bus.
type Event struct {
	ID        string           `json:"id"`
	Topic     string           `json:"topic"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Order     *model.Order     `json:"order,omitempty"`
	Execution *model.Execution `json:"execution,omitempty"`
}

// NewOrderEvent builds an event on TopicOrders for order.
func NewOrderEvent(eventType string, order *model.Order, execution *model.Execution) Event {
	return Event{
		ID:        uuid.NewString(),
		Topic:     TopicOrders,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Order:     order,
		Execution: execution,
	}
}

// Key returns the partitioning key of the event.
func (e Event) Key() string {
	if e.Order != nil {
		return e.Order.OrderID
	}
	return e.ID
}

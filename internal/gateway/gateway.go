// Package gateway is the caller side of the order gateway: it routes client
// requests to the adapter and publishes the venue's responses on the event
// bus.
package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/events"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

// Gateway owns the adapter and implements adapter.OrderHandler.
type Gateway struct {
	logger  *zap.Logger
	adapter *adapter.Adapter
	bus     events.Bus
}

var _ adapter.OrderHandler = (*Gateway)(nil)

// New wires a gateway over session, publishing responses to bus.
func New(logger *zap.Logger, st *store.Store, session adapter.Session, bus events.Bus, policy adapter.FieldPolicy) *Gateway {
	g := &Gateway{
		logger: logger.Named("gateway"),
		bus:    bus,
	}
	g.adapter = adapter.New(logger, st, g, session, policy)
	return g
}

// Adapter returns the underlying adapter, which also dispatches inbound messages.
func (g *Gateway) Adapter() *adapter.Adapter {
	return g.adapter
}

// ProcessRequest routes a client request by type.
func (g *Gateway) ProcessRequest(ctx context.Context, requestType model.RequestType, order *model.Order) error {
	switch requestType {
	case model.RequestTypeNew:
		return g.SendNew(ctx, order)
	case model.RequestTypeAmend:
		return g.SendReplace(ctx, order)
	case model.RequestTypeCancel:
		return g.SendCancel(ctx, order)
	}
	g.logger.Error("Unknown request type", zap.String("request_type", string(requestType)))
	return apperrors.InvalidOrder.Explain("unknown request type %q", string(requestType))
}

func (g *Gateway) SendNew(ctx context.Context, order *model.Order) error {
	return g.adapter.SendNew(ctx, order)
}

func (g *Gateway) SendReplace(ctx context.Context, order *model.Order) error {
	return g.adapter.SendReplace(ctx, order)
}

func (g *Gateway) SendCancel(ctx context.Context, order *model.Order) error {
	return g.adapter.SendCancel(ctx, order)
}

func (g *Gateway) OnNewAck(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeNewAck, order, nil)
}

func (g *Gateway) OnNewRej(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeNewRej, order, nil)
}

func (g *Gateway) OnReplaceAck(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeReplaceAck, order, nil)
}

func (g *Gateway) OnReplaceRej(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeReplaceRej, order, nil)
}

func (g *Gateway) OnCancelAck(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeCancelAck, order, nil)
}

func (g *Gateway) OnCancelRej(ctx context.Context, order *model.Order) {
	g.publish(ctx, events.TypeCancelRej, order, nil)
}

func (g *Gateway) OnExecution(ctx context.Context, order *model.Order, execution *model.Execution) {
	g.publish(ctx, events.TypeExecution, order, execution)
}

func (g *Gateway) publish(ctx context.Context, eventType string, order *model.Order, execution *model.Execution) {
	event := events.NewOrderEvent(eventType, order, execution)
	if err := g.bus.Publish(ctx, event); err != nil {
		g.logger.Error("Failed to publish order event",
			zap.String("order_id", order.OrderID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}
	g.logger.Debug("Order event published",
		zap.String("order_id", order.OrderID),
		zap.String("type", eventType),
		zap.String("event_id", event.ID),
	)
}

// Order returns the stored snapshot of orderID.
func (g *Gateway) Order(orderID string) (*model.Order, bool) {
	return g.adapter.Store().Order(orderID)
}

// CurrentRequestID returns the most recent request id issued for orderID.
func (g *Gateway) CurrentRequestID(orderID string) (string, bool) {
	return g.adapter.Store().CurrentRequestID(orderID)
}

// Executions returns the fills of orderID ordered by exec id.
func (g *Gateway) Executions(orderID string) []*model.Execution {
	return g.adapter.Store().ExecutionsFor(orderID)
}

// ResolveRequest returns the order a request id was issued for.
func (g *Gateway) ResolveRequest(requestID string) (string, error) {
	return g.adapter.Store().ResolveOrderID(requestID)
}

// SessionActive reports whether the protocol session is logged on.
func (g *Gateway) SessionActive() bool {
	return g.adapter.SessionActive()
}

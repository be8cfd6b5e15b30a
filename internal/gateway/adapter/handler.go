package adapter

import (
	"context"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
)

// Listener receives lifecycle callbacks once an inbound event changed an
// order. Orders handed to a listener are copies of the stored snapshot.
type Listener interface {
	OnNewAck(ctx context.Context, order *model.Order)
	OnNewRej(ctx context.Context, order *model.Order)
	OnReplaceAck(ctx context.Context, order *model.Order)
	OnReplaceRej(ctx context.Context, order *model.Order)
	OnCancelAck(ctx context.Context, order *model.Order)
	OnCancelRej(ctx context.Context, order *model.Order)
	OnExecution(ctx context.Context, order *model.Order, execution *model.Execution)
}

// Sender issues new, replace and cancel requests for orders.
type Sender interface {
	SendNew(ctx context.Context, order *model.Order) error
	SendReplace(ctx context.Context, order *model.Order) error
	SendCancel(ctx context.Context, order *model.Order) error
}

// OrderHandler is implemented by the owner of the adapter: it issues requests
// and receives the lifecycle callbacks.
type OrderHandler interface {
	Sender
	Listener
}

// Session is the protocol engine's outbound side.
type Session interface {
	Send(ctx context.Context, req *Request) error
}

// NopListener ignores every callback. Embed it to implement only a subset.
type NopListener struct{}

func (NopListener) OnNewAck(context.Context, *model.Order)                      {}
func (NopListener) OnNewRej(context.Context, *model.Order)                      {}
func (NopListener) OnReplaceAck(context.Context, *model.Order)                  {}
func (NopListener) OnReplaceRej(context.Context, *model.Order)                  {}
func (NopListener) OnCancelAck(context.Context, *model.Order)                   {}
func (NopListener) OnCancelRej(context.Context, *model.Order)                   {}
func (NopListener) OnExecution(context.Context, *model.Order, *model.Execution) {}

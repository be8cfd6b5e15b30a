package adapter

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
)

// Request is the structured outbound request handed to the protocol engine.
// Optional fields are left empty when the field policy excludes them.
type Request struct {
	MsgType     model.MsgType     `json:"msg_type"`
	RequestType model.RequestType `json:"request_type"`
	RequestID   string            `json:"cl_ord_id"`
	OrderID     string            `json:"-"`
	Symbol      string            `json:"symbol"`
	Side        model.Side        `json:"side"`
	Quantity    decimal.Decimal   `json:"qty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	OrderType   model.OrderType   `json:"order_type,omitempty"`
	TimeInForce model.TimeInForce `json:"time_in_force,omitempty"`
}

// FieldSet selects the optional fields transmitted for one request type.
type FieldSet struct {
	Price       bool `mapstructure:"price" json:"price"`
	Currency    bool `mapstructure:"currency" json:"currency"`
	OrderType   bool `mapstructure:"order_type" json:"order_type"`
	TimeInForce bool `mapstructure:"time_in_force" json:"time_in_force"`
}

// FieldPolicy is the venue specific field inclusion policy. Symbol, side,
// quantity and the request id are always sent; market orders never carry
// price or currency.
type FieldPolicy struct {
	New     FieldSet `mapstructure:"new" json:"new"`
	Replace FieldSet `mapstructure:"replace" json:"replace"`
	Cancel  FieldSet `mapstructure:"cancel" json:"cancel"`
}

// DefaultFieldPolicy sends everything on new orders, drops currency on
// replaces and sends only the identifying fields on cancels.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		New:     FieldSet{Price: true, Currency: true, OrderType: true, TimeInForce: true},
		Replace: FieldSet{Price: true, OrderType: true, TimeInForce: true},
		Cancel:  FieldSet{},
	}
}

// For returns the field set of a request type.
func (p FieldPolicy) For(requestType model.RequestType) FieldSet {
	switch requestType {
	case model.RequestTypeAmend:
		return p.Replace
	case model.RequestTypeCancel:
		return p.Cancel
	default:
		return p.New
	}
}

var requestMsgTypes = map[model.RequestType]model.MsgType{
	model.RequestTypeNew:    model.MsgTypeNewOrderSingle,
	model.RequestTypeAmend:  model.MsgTypeOrderCancelReplaceRequest,
	model.RequestTypeCancel: model.MsgTypeOrderCancelRequest,
}

// BuildRequest assembles the outbound request for order under requestID.
func (p FieldPolicy) BuildRequest(requestType model.RequestType, requestID string, order *model.Order) *Request {
	fs := p.For(requestType)
	req := &Request{
		MsgType:     requestMsgTypes[requestType],
		RequestType: requestType,
		RequestID:   requestID,
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
	}
	if !order.IsMarket() {
		if fs.Price {
			price := order.Price
			req.Price = &price
		}
		if fs.Currency {
			req.Currency = order.Currency
		}
	}
	if fs.OrderType {
		req.OrderType = order.Type
	}
	if fs.TimeInForce {
		req.TimeInForce = order.TimeInForce
	}
	return req
}

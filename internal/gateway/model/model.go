package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the FIX Side code of an order.
type Side string

const (
	SideBuy       Side = "1"
	SideSell      Side = "2"
	SideSellShort Side = "5"
)

// OrderType is the FIX OrdType code.
type OrderType string

const (
	OrderTypeMarket                    OrderType = "1"
	OrderTypeLimit                     OrderType = "2"
	OrderTypeStop                      OrderType = "3"
	OrderTypeStopLimit                 OrderType = "4"
	OrderTypeMarketWithLeftoverAsLimit OrderType = "K"
	OrderTypePegged                    OrderType = "P"
)

// TimeInForce is the FIX TimeInForce code.
type TimeInForce string

const (
	TimeInForceDay               TimeInForce = "0"
	TimeInForceGoodTillCancel    TimeInForce = "1"
	TimeInForceAtTheOpening      TimeInForce = "2"
	TimeInForceImmediateOrCancel TimeInForce = "3"
	TimeInForceFillOrKill        TimeInForce = "4"
	TimeInForceGoodTillCrossing  TimeInForce = "5"
	TimeInForceGoodTillDate      TimeInForce = "6"
	TimeInForceAtTheClose        TimeInForce = "7"
)

// Status is the lifecycle status of an order. Values follow FIX 4.4 OrdStatus
// except the reject statuses, which have no OrdStatus equivalent.
type Status string

const (
	StatusUnsent          Status = ""
	StatusPendingNew      Status = "A"
	StatusNew             Status = "0"
	StatusNewRejected     Status = "8"
	StatusPendingReplace  Status = "E"
	StatusReplaced        Status = "5"
	StatusReplaceRejected Status = "10"
	StatusPendingCancel   Status = "6"
	StatusCanceled        Status = "4"
	StatusCancelRejected  Status = "11"
	StatusPartiallyFilled Status = "1"
	StatusFullyFilled     Status = "2"
)

var statusNames = map[Status]string{
	StatusUnsent:          "UNSENT",
	StatusPendingNew:      "PENDING_NEW",
	StatusNew:             "NEW",
	StatusNewRejected:     "NEW_REJECTED",
	StatusPendingReplace:  "PENDING_REPLACE",
	StatusReplaced:        "REPLACED",
	StatusReplaceRejected: "REPLACE_REJECTED",
	StatusPendingCancel:   "PENDING_CANCEL",
	StatusCanceled:        "CANCELED",
	StatusCancelRejected:  "CANCEL_REJECTED",
	StatusPartiallyFilled: "PARTIALLY_FILLED",
	StatusFullyFilled:     "FULLY_FILLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN(" + string(s) + ")"
}

// RequestType is the kind of outbound action a caller asks for.
type RequestType string

const (
	RequestTypeNew    RequestType = "0"
	RequestTypeAmend  RequestType = "1"
	RequestTypeCancel RequestType = "2"
)

func (r RequestType) String() string {
	switch r {
	case RequestTypeNew:
		return "NEW"
	case RequestTypeAmend:
		return "AMEND"
	case RequestTypeCancel:
		return "CANCEL"
	}
	return "UNKNOWN"
}

// OrdRejReason describes FIX OrdRejReason codes.
var OrdRejReason = map[int]string{
	0:  "Broker / Exchange option",
	1:  "Unknown symbol",
	2:  "Exchange closed",
	3:  "Order exceeds limit",
	4:  "Too late to enter",
	5:  "Unknown Order",
	6:  "Duplicate Order (e.g. dupe ClOrdID (11))",
	7:  "Duplicate of a verbally communicated order",
	8:  "Stale Order",
	9:  "Trade Along required",
	10: "Invalid Investor ID",
	11: "Unsupported order characteristic",
	12: "Surveillence Option",
	13: "Incorrect quantity",
	14: "Incorrect allocated quantity",
	15: "Unknown account(s)",
	99: "Other",
}

// RejectReasonText returns the description of an OrdRejReason code.
func RejectReasonText(code int) string {
	if text, ok := OrdRejReason[code]; ok {
		return text
	}
	return "Unknown reason"
}

// Order is a single client order. OrderID is assigned by the caller and must
// not contain the request identifier separator.
type Order struct {
	OrderID      string          `json:"order_id" validate:"required,order_id"`
	Side         Side            `json:"side" validate:"required,fix_side"`
	Symbol       string          `json:"symbol" validate:"required,secure_string"`
	Quantity     decimal.Decimal `json:"qty"`
	ExecutedQty  decimal.Decimal `json:"executed_qty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency,omitempty" validate:"omitempty,secure_string"`
	Type         OrderType       `json:"order_type" validate:"required,fix_ord_type"`
	TimeInForce  TimeInForce     `json:"time_in_force" validate:"omitempty,fix_tif"`
	Status       Status          `json:"status"`
	RejectReason *int            `json:"reject_reason,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.RejectReason != nil {
		r := *o.RejectReason
		c.RejectReason = &r
	}
	return &c
}

// IsMarket reports whether the order carries no limit price.
func (o *Order) IsMarket() bool {
	return o.Type == OrderTypeMarket
}

// Execution is a single fill reported by the venue. It is immutable once created.
type Execution struct {
	OrderID      string          `json:"order_id"`
	ExecID       string          `json:"exec_id"`
	TransactTime string          `json:"transact_time"`
	LastQty      decimal.Decimal `json:"last_qty"`
	LastPrice    decimal.Decimal `json:"last_price"`
}

// MsgType is the FIX MsgType of an application or session message.
type MsgType string

const (
	MsgTypeHeartbeat                 MsgType = "0"
	MsgTypeLogout                    MsgType = "5"
	MsgTypeExecutionReport           MsgType = "8"
	MsgTypeOrderCancelReject         MsgType = "9"
	MsgTypeLogon                     MsgType = "A"
	MsgTypeNewOrderSingle            MsgType = "D"
	MsgTypeOrderCancelRequest        MsgType = "F"
	MsgTypeOrderCancelReplaceRequest MsgType = "G"
)

// ExecType is the FIX 4.4 ExecType of an execution report.
type ExecType string

const (
	ExecTypeNew            ExecType = "0"
	ExecTypeDoneForDay     ExecType = "3"
	ExecTypeCanceled       ExecType = "4"
	ExecTypeReplace        ExecType = "5"
	ExecTypePendingCancel  ExecType = "6"
	ExecTypeStopped        ExecType = "7"
	ExecTypeRejected       ExecType = "8"
	ExecTypeSuspended      ExecType = "9"
	ExecTypePendingNew     ExecType = "A"
	ExecTypeCalculated     ExecType = "B"
	ExecTypeExpired        ExecType = "C"
	ExecTypeRestated       ExecType = "D"
	ExecTypePendingReplace ExecType = "E"
	ExecTypeTrade          ExecType = "F"
	ExecTypeTradeCorrect   ExecType = "G"
	ExecTypeTradeCancel    ExecType = "H"
	ExecTypeOrderStatus    ExecType = "I"
)

// CxlRejResponseTo tells which request an order cancel reject answers.
type CxlRejResponseTo string

const (
	CxlRejResponseToCancel  CxlRejResponseTo = "1"
	CxlRejResponseToReplace CxlRejResponseTo = "2"
)

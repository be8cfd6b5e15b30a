package adapter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

// Tag is a FIX field tag number.
type Tag int

const (
	TagClOrdID          Tag = 11
	TagCumQty           Tag = 14
	TagCurrency         Tag = 15
	TagExecID           Tag = 17
	TagLastPx           Tag = 31
	TagLastQty          Tag = 32
	TagOrderID          Tag = 37
	TagOrderQty         Tag = 38
	TagOrdType          Tag = 40
	TagPrice            Tag = 44
	TagSide             Tag = 54
	TagSymbol           Tag = 55
	TagText             Tag = 58
	TagTimeInForce      Tag = 59
	TagTransactTime     Tag = 60
	TagOrdRejReason     Tag = 103
	TagExecType         Tag = 150
	TagLeavesQty        Tag = 151
	TagCxlRejResponseTo Tag = 434
)

var tagNames = map[Tag]string{
	TagClOrdID:          "ClOrdID",
	TagCumQty:           "CumQty",
	TagCurrency:         "Currency",
	TagExecID:           "ExecID",
	TagLastPx:           "LastPx",
	TagLastQty:          "LastQty",
	TagOrderID:          "OrderID",
	TagOrderQty:         "OrderQty",
	TagOrdType:          "OrdType",
	TagPrice:            "Price",
	TagSide:             "Side",
	TagSymbol:           "Symbol",
	TagText:             "Text",
	TagTimeInForce:      "TimeInForce",
	TagTransactTime:     "TransactTime",
	TagOrdRejReason:     "OrdRejReason",
	TagExecType:         "ExecType",
	TagLeavesQty:        "LeavesQty",
	TagCxlRejResponseTo: "CxlRejResponseTo",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return fmt.Sprintf("%s(%d)", name, int(t))
	}
	return strconv.Itoa(int(t))
}

// Message is an inbound message as handed over by the protocol engine:
// logical fields keyed by tag, already decoded from the wire.
type Message struct {
	Type      model.MsgType  `json:"msg_type"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[Tag]string `json:"fields"`
}

// NewMessage builds a message of the given type from fields.
func NewMessage(msgType model.MsgType, fields map[Tag]string) *Message {
	if fields == nil {
		fields = make(map[Tag]string)
	}
	return &Message{Type: msgType, Fields: fields}
}

// Get returns a mandatory field.
func (m *Message) Get(tag Tag) (string, error) {
	v, ok := m.Fields[tag]
	if !ok || v == "" {
		return "", apperrors.MissingField.
			Explain("%s message is missing %s", m.Type, tag).
			WithField(apperrors.KindMissingField, tag.String(), "")
	}
	return v, nil
}

// Optional returns a field that may be absent.
func (m *Message) Optional(tag Tag) (string, bool) {
	v, ok := m.Fields[tag]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Decimal returns a mandatory numeric field.
func (m *Message) Decimal(tag Tag) (decimal.Decimal, error) {
	v, err := m.Get(tag)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperrors.InvalidField.
			Explain("%s value %q is not a number", tag, v).
			WithField(apperrors.KindInvalidField, tag.String(), err.Error())
	}
	return d, nil
}

// Int returns a mandatory integer field.
func (m *Message) Int(tag Tag) (int, error) {
	v, err := m.Get(tag)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.InvalidField.
			Explain("%s value %q is not an integer", tag, v).
			WithField(apperrors.KindInvalidField, tag.String(), err.Error())
	}
	return n, nil
}

package lifecycle

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/pkg/metrics"
)

// Event is an inbound occurrence the state machine reacts to.
type Event int

const (
	EventUnrecognized Event = iota
	EventNewAck
	EventNewReject
	EventCancelAck
	EventReplaceAck
	EventTrade
	EventPartialFill
	EventFullFill
	EventCancelRejected
	EventReplaceRejected
	EventPendingNew
	EventPendingCancel
	EventPendingReplace
	EventIgnored
)

var eventNames = [...]string{
	EventUnrecognized:    "UNRECOGNIZED",
	EventNewAck:          "NEW_ACK",
	EventNewReject:       "NEW_REJECT",
	EventCancelAck:       "CANCEL_ACK",
	EventReplaceAck:      "REPLACE_ACK",
	EventTrade:           "TRADE",
	EventPartialFill:     "PARTIAL_FILL",
	EventFullFill:        "FULL_FILL",
	EventCancelRejected:  "CANCEL_REJECTED",
	EventReplaceRejected: "REPLACE_REJECTED",
	EventPendingNew:      "PENDING_NEW",
	EventPendingCancel:   "PENDING_CANCEL",
	EventPendingReplace:  "PENDING_REPLACE",
	EventIgnored:         "IGNORED",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Callback names the OrderHandler method a transition fires.
type Callback int

const (
	CallbackNone Callback = iota
	CallbackNewAck
	CallbackNewRej
	CallbackReplaceAck
	CallbackReplaceRej
	CallbackCancelAck
	CallbackCancelRej
	CallbackExecution
)

// Transition is the outcome of applying an event to a status.
type Transition struct {
	Event    Event
	From     model.Status
	To       model.Status
	Callback Callback
	// Changed is false for informational and ignored events.
	Changed bool
}

type rule struct {
	to       model.Status
	callback Callback
}

var rules = map[Event]rule{
	EventNewAck:          {model.StatusNew, CallbackNewAck},
	EventNewReject:       {model.StatusNewRejected, CallbackNewRej},
	EventCancelAck:       {model.StatusCanceled, CallbackCancelAck},
	EventReplaceAck:      {model.StatusReplaced, CallbackReplaceAck},
	EventPartialFill:     {model.StatusPartiallyFilled, CallbackExecution},
	EventFullFill:        {model.StatusFullyFilled, CallbackExecution},
	EventCancelRejected:  {model.StatusCancelRejected, CallbackCancelRej},
	EventReplaceRejected: {model.StatusReplaceRejected, CallbackReplaceRej},
}

var execTypeEvents = map[model.ExecType]Event{
	model.ExecTypeNew:            EventNewAck,
	model.ExecTypeRejected:       EventNewReject,
	model.ExecTypeCanceled:       EventCancelAck,
	model.ExecTypeReplace:        EventReplaceAck,
	model.ExecTypeTrade:          EventTrade,
	model.ExecTypePendingNew:     EventPendingNew,
	model.ExecTypePendingCancel:  EventPendingCancel,
	model.ExecTypePendingReplace: EventPendingReplace,
	model.ExecTypeDoneForDay:     EventIgnored,
	model.ExecTypeStopped:        EventIgnored,
	model.ExecTypeSuspended:      EventIgnored,
	model.ExecTypeCalculated:     EventIgnored,
	model.ExecTypeExpired:        EventIgnored,
	model.ExecTypeRestated:       EventIgnored,
	model.ExecTypeTradeCorrect:   EventIgnored,
	model.ExecTypeTradeCancel:    EventIgnored,
	model.ExecTypeOrderStatus:    EventIgnored,
}

// Classify maps an execution report's ExecType onto an event. Trades come
// back as EventTrade and must be refined with FillEvent.
func Classify(execType model.ExecType) Event {
	if ev, ok := execTypeEvents[execType]; ok {
		return ev
	}
	return EventUnrecognized
}

// ClassifyCancelReject maps a CxlRejResponseTo value onto an event.
func ClassifyCancelReject(responseTo model.CxlRejResponseTo) Event {
	switch responseTo {
	case model.CxlRejResponseToCancel:
		return EventCancelRejected
	case model.CxlRejResponseToReplace:
		return EventReplaceRejected
	}
	return EventUnrecognized
}

// FillEvent refines a trade by the quantity left open on the order.
func FillEvent(remaining decimal.Decimal) Event {
	if remaining.IsZero() {
		return EventFullFill
	}
	return EventPartialFill
}

// Next computes the transition of current under ev. It has no side effects.
func Next(current model.Status, ev Event) Transition {
	t := Transition{Event: ev, From: current, To: current}
	if r, ok := rules[ev]; ok {
		t.To = r.to
		t.Callback = r.callback
		t.Changed = true
	}
	return t
}

// Optimistic returns the status applied to an order when a request of the
// given type is sent, before the venue confirms it.
func Optimistic(requestType model.RequestType) (model.Status, bool) {
	switch requestType {
	case model.RequestTypeNew:
		return model.StatusPendingNew, true
	case model.RequestTypeAmend:
		return model.StatusPendingReplace, true
	case model.RequestTypeCancel:
		return model.StatusPendingCancel, true
	}
	return "", false
}

// IsTerminal reports whether status ends the life of an order, barring venue
// corrections.
func IsTerminal(status model.Status) bool {
	switch status {
	case model.StatusNewRejected, model.StatusCanceled, model.StatusFullyFilled:
		return true
	}
	return false
}

// Machine applies transitions to order snapshots and keeps transition counters.
type Machine struct {
	logger  *zap.Logger
	metrics *Metrics
}

// Metrics tracks counters for applied transitions
type Metrics struct {
	StateTransitions map[string]int64
	Informational    int64
	Ignored          int64
	Unrecognized     int64
	TerminalExits    int64
	mutex            sync.RWMutex
}

// NewMachine creates a new lifecycle state machine
func NewMachine(logger *zap.Logger) *Machine {
	return &Machine{
		logger: logger.Named("lifecycle"),
		metrics: &Metrics{
			StateTransitions: make(map[string]int64),
		},
	}
}

// Apply moves order according to ev and returns the transition. The caller
// holds the order lock.
func (m *Machine) Apply(order *model.Order, ev Event) Transition {
	t := Next(order.Status, ev)

	switch {
	case t.Changed:
		if IsTerminal(t.From) && t.From != t.To {
			m.logger.Warn("Order leaves a terminal status",
				zap.String("order_id", order.OrderID),
				zap.Stringer("from", t.From),
				zap.Stringer("to", t.To),
				zap.Stringer("event", ev),
			)
			m.metrics.increment(func(mt *Metrics) { mt.TerminalExits++ })
		}
		order.Status = t.To
		m.metrics.increment(func(mt *Metrics) {
			mt.StateTransitions[fmt.Sprintf("%s->%s", t.From, t.To)]++
		})
		metrics.Transitions.WithLabelValues(t.To.String()).Inc()
	case ev == EventPendingNew || ev == EventPendingCancel || ev == EventPendingReplace:
		m.logger.Info("Received pending acknowledgement",
			zap.String("order_id", order.OrderID),
			zap.Stringer("event", ev),
		)
		m.metrics.increment(func(mt *Metrics) { mt.Informational++ })
	case ev == EventIgnored:
		m.metrics.increment(func(mt *Metrics) { mt.Ignored++ })
	default:
		m.metrics.increment(func(mt *Metrics) { mt.Unrecognized++ })
	}
	return t
}

// Metrics returns a copy of the current counters.
func (m *Machine) Metrics() *Metrics {
	m.metrics.mutex.RLock()
	defer m.metrics.mutex.RUnlock()

	transitions := make(map[string]int64, len(m.metrics.StateTransitions))
	for k, v := range m.metrics.StateTransitions {
		transitions[k] = v
	}
	return &Metrics{
		StateTransitions: transitions,
		Informational:    m.metrics.Informational,
		Ignored:          m.metrics.Ignored,
		Unrecognized:     m.metrics.Unrecognized,
		TerminalExits:    m.metrics.TerminalExits,
	}
}

func (mt *Metrics) increment(fn func(*Metrics)) {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()
	fn(mt)
}

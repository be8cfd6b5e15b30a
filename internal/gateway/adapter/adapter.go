// Package adapter translates between client orders and the protocol engine:
// it issues request identifiers and outbound requests, and turns inbound
// execution reports and cancel rejects into lifecycle transitions and
// callbacks.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/clordid"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/lifecycle"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
	"github.com/Aidin1998/pincex_gateway/pkg/metrics"
	"github.com/Aidin1998/pincex_gateway/pkg/validation"
)

// Adapter is the gateway adapter. Inbound messages for one order must be
// delivered sequentially; messages for different orders may be handled
// concurrently.
type Adapter struct {
	logger   *zap.Logger
	store    *store.Store
	machine  *lifecycle.Machine
	listener Listener
	session  Session
	policy   FieldPolicy
	validate *validation.Validator

	sessionMu sync.RWMutex
	sessionID string
	loggedOn  bool
}

// New creates an adapter bound to a correlation store and a protocol session.
func New(logger *zap.Logger, st *store.Store, listener Listener, session Session, policy FieldPolicy) *Adapter {
	if listener == nil {
		listener = NopListener{}
	}
	return &Adapter{
		logger:   logger.Named("gateway-adapter"),
		store:    st,
		machine:  lifecycle.NewMachine(logger),
		listener: listener,
		session:  session,
		policy:   policy,
		validate: validation.NewValidator(logger),
	}
}

// SetListener replaces the callback receiver. It must be called before any
// inbound message is handled.
func (a *Adapter) SetListener(listener Listener) {
	a.listener = listener
}

// Store returns the correlation store.
func (a *Adapter) Store() *store.Store {
	return a.store
}

// Machine returns the lifecycle state machine.
func (a *Adapter) Machine() *lifecycle.Machine {
	return a.machine
}

// SendNew submits a new order under its initial request id.
func (a *Adapter) SendNew(ctx context.Context, order *model.Order) error {
	return a.send(ctx, model.RequestTypeNew, order)
}

// SendReplace submits a replace of a previously sent order.
func (a *Adapter) SendReplace(ctx context.Context, order *model.Order) error {
	return a.send(ctx, model.RequestTypeAmend, order)
}

// SendCancel submits a cancel of a previously sent order.
func (a *Adapter) SendCancel(ctx context.Context, order *model.Order) error {
	return a.send(ctx, model.RequestTypeCancel, order)
}

func (a *Adapter) send(ctx context.Context, requestType model.RequestType, order *model.Order) error {
	if err := a.validateOrder(requestType, order); err != nil {
		return err
	}

	// The caller's order only turns pending once a request id is issued.
	pending := order.Clone()
	pending.Status, _ = lifecycle.Optimistic(requestType)
	pending.UpdatedAt = time.Now().UTC()

	requestID, err := a.store.Issue(pending, requestType == model.RequestTypeNew)
	if err != nil {
		a.logger.Error("Failed to issue request id",
			zap.String("order_id", order.OrderID),
			zap.Stringer("request_type", requestType),
			zap.Error(err),
		)
		return err
	}
	order.Status = pending.Status
	order.UpdatedAt = pending.UpdatedAt

	req := a.policy.BuildRequest(requestType, requestID, pending)
	a.transmit(ctx, req)
	return nil
}

func (a *Adapter) validateOrder(requestType model.RequestType, order *model.Order) error {
	if order == nil {
		return apperrors.InvalidOrder.Explain("order is required")
	}
	if err := clordid.ValidateOrderID(order.OrderID); err != nil {
		return err
	}

	var err error
	if requestType == model.RequestTypeCancel {
		err = a.validate.ValidatePartial(order, "OrderID", "Side", "Symbol")
	} else {
		err = a.validate.ValidateStruct(order)
	}
	if err != nil {
		return err
	}
	if requestType != model.RequestTypeCancel && !order.Quantity.IsPositive() {
		return apperrors.InvalidOrder.
			Explain("order %s quantity must be positive", order.OrderID).
			WithField(apperrors.KindInvalidField, "qty", order.Quantity.String())
	}
	return nil
}

// transmit hands req to the session. Transport failures are logged and
// counted, never returned to the caller.
func (a *Adapter) transmit(ctx context.Context, req *Request) {
	var err error
	switch {
	case a.session == nil || !a.SessionActive():
		err = apperrors.TransportUnavailable.Explain("no active session")
	default:
		if sendErr := a.session.Send(ctx, req); sendErr != nil {
			err = apperrors.TransportUnavailable.Explain("session send failed").Wrap(sendErr)
		}
	}

	if err != nil {
		metrics.SendFailures.WithLabelValues(req.RequestType.String()).Inc()
		a.logger.Error("Unable to send request",
			zap.String("order_id", req.OrderID),
			zap.String("cl_ord_id", req.RequestID),
			zap.Stringer("request_type", req.RequestType),
			zap.Error(err),
		)
		return
	}

	metrics.RequestsSent.WithLabelValues(req.RequestType.String()).Inc()
	a.logger.Debug("Request sent",
		zap.String("order_id", req.OrderID),
		zap.String("cl_ord_id", req.RequestID),
		zap.Stringer("request_type", req.RequestType),
	)
}

// OnLogon marks the session as established.
func (a *Adapter) OnLogon(sessionID string) {
	a.sessionMu.Lock()
	a.sessionID = sessionID
	a.loggedOn = true
	a.sessionMu.Unlock()
	a.logger.Info("Session logged on", zap.String("session_id", sessionID))
}

// OnLogout marks the session as gone. Outbound requests are swallowed until
// the next logon.
func (a *Adapter) OnLogout(sessionID string) {
	a.sessionMu.Lock()
	a.loggedOn = false
	a.sessionMu.Unlock()
	a.logger.Info("Session logged out", zap.String("session_id", sessionID))
}

// SessionActive reports whether a session is logged on.
func (a *Adapter) SessionActive() bool {
	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	return a.loggedOn
}

// SessionID returns the id of the most recent logon.
func (a *Adapter) SessionID() string {
	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	return a.sessionID
}

// OnMessage dispatches an inbound message by type.
func (a *Adapter) OnMessage(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case model.MsgTypeExecutionReport:
		return a.OnExecutionReport(ctx, msg)
	case model.MsgTypeOrderCancelReject:
		return a.OnCancelReject(ctx, msg)
	case model.MsgTypeLogon:
		a.OnLogon(msg.SessionID)
	case model.MsgTypeLogout:
		a.OnLogout(msg.SessionID)
	case model.MsgTypeHeartbeat:
	default:
		metrics.InboundEvents.WithLabelValues("unsupported", "").Inc()
		metrics.DroppedEvents.WithLabelValues("unsupported_msg_type").Inc()
		a.logger.Warn("Unsupported message type", zap.String("msg_type", string(msg.Type)))
	}
	return nil
}

// OnExecutionReport handles an execution report: it resolves the order,
// applies the transition and fires the matching callback.
func (a *Adapter) OnExecutionReport(ctx context.Context, msg *Message) error {
	requestID, err := msg.Get(TagClOrdID)
	if err != nil {
		return a.reject("missing_field", err)
	}
	rawExecType, err := msg.Get(TagExecType)
	if err != nil {
		return a.reject("missing_field", err, zap.String("cl_ord_id", requestID))
	}
	ev := lifecycle.Classify(model.ExecType(rawExecType))
	marketOrderID, _ := msg.Optional(TagOrderID)
	metrics.InboundEvents.WithLabelValues(string(msg.Type), ev.String()).Inc()

	fields := []zap.Field{
		zap.String("cl_ord_id", requestID),
		zap.String("market_order_id", marketOrderID),
		zap.String("exec_type", rawExecType),
	}

	order, err := a.store.ResolveOrder(requestID, marketOrderID)
	if err != nil {
		return a.reject("order_not_found", err, fields...)
	}
	a.store.BindMarketOrderID(marketOrderID, order.OrderID)
	orderID := a.resolveOrderID(requestID, order.OrderID)
	fields = append(fields, zap.String("order_id", orderID))

	var (
		rejectCode *int
		fill       *fillReport
	)
	switch ev {
	case lifecycle.EventUnrecognized:
		a.discard(orderID, "unknown_exec_type", "Unknown exec type", fields...)
		return nil
	case lifecycle.EventNewReject:
		code, err := msg.Int(TagOrdRejReason)
		if err != nil {
			return a.reject("missing_field", err, fields...)
		}
		rejectCode = &code
		a.logger.Error("Submission rejected",
			append(fields,
				zap.Int("ord_rej_reason", code),
				zap.String("reason", model.RejectReasonText(code)),
			)...,
		)
	case lifecycle.EventTrade:
		fill, err = readFill(msg, orderID)
		if err != nil {
			return a.reject("missing_field", err, fields...)
		}
		ev = lifecycle.FillEvent(fill.leaves)
	}

	var t lifecycle.Transition
	updated, err := a.store.Update(orderID, func(o *model.Order) {
		if rejectCode != nil {
			code := *rejectCode
			o.RejectReason = &code
		}
		if fill != nil {
			o.ExecutedQty = fill.cumulative
		}
		t = a.machine.Apply(o, ev)
		if t.Changed {
			o.UpdatedAt = time.Now().UTC()
		}
	})
	if err != nil {
		return a.reject("order_not_found", err, fields...)
	}

	var execution *model.Execution
	if fill != nil {
		execution = fill.execution
		a.store.RecordExecution(execution.ExecID, execution)
	}
	a.notify(ctx, t, updated, execution)
	return nil
}

// OnCancelReject handles an order cancel reject answering either a cancel or
// a replace request.
func (a *Adapter) OnCancelReject(ctx context.Context, msg *Message) error {
	requestID, err := msg.Get(TagClOrdID)
	if err != nil {
		return a.reject("missing_field", err)
	}
	marketOrderID, err := msg.Get(TagOrderID)
	if err != nil {
		return a.reject("missing_field", err, zap.String("cl_ord_id", requestID))
	}
	responseTo, err := msg.Get(TagCxlRejResponseTo)
	if err != nil {
		return a.reject("missing_field", err,
			zap.String("cl_ord_id", requestID),
			zap.String("market_order_id", marketOrderID),
		)
	}
	metrics.InboundEvents.WithLabelValues(string(msg.Type), "").Inc()

	fields := []zap.Field{
		zap.String("cl_ord_id", requestID),
		zap.String("market_order_id", marketOrderID),
		zap.String("cxl_rej_response_to", responseTo),
	}

	order, err := a.store.ResolveOrder(requestID, marketOrderID)
	if err != nil {
		return a.reject("order_not_found", err, fields...)
	}
	fields = append(fields, zap.String("order_id", order.OrderID))

	ev := lifecycle.ClassifyCancelReject(model.CxlRejResponseTo(responseTo))
	if ev == lifecycle.EventUnrecognized {
		a.discard(order.OrderID, "unknown_response_to", "Unknown cancel reject response type", fields...)
		return nil
	}
	if text, ok := msg.Optional(TagText); ok {
		a.logger.Info("Cancel reject reason", append(fields, zap.String("text", text))...)
	}

	var t lifecycle.Transition
	updated, err := a.store.Update(order.OrderID, func(o *model.Order) {
		t = a.machine.Apply(o, ev)
		if t.Changed {
			o.UpdatedAt = time.Now().UTC()
		}
	})
	if err != nil {
		return a.reject("order_not_found", err, fields...)
	}
	a.notify(ctx, t, updated, nil)
	return nil
}

// resolveOrderID maps requestID back to its order id. A miss means the order
// was found through its venue id; fallback is kept then.
func (a *Adapter) resolveOrderID(requestID, fallback string) string {
	orderID, err := a.store.ResolveOrderID(requestID)
	if err != nil {
		a.logger.Debug("Request id not resolvable, keeping venue order mapping",
			zap.String("cl_ord_id", requestID),
			zap.String("order_id", fallback),
		)
		return fallback
	}
	return orderID
}

func (a *Adapter) notify(ctx context.Context, t lifecycle.Transition, order *model.Order, execution *model.Execution) {
	switch t.Callback {
	case lifecycle.CallbackNewAck:
		a.listener.OnNewAck(ctx, order)
	case lifecycle.CallbackNewRej:
		a.listener.OnNewRej(ctx, order)
	case lifecycle.CallbackReplaceAck:
		a.listener.OnReplaceAck(ctx, order)
	case lifecycle.CallbackReplaceRej:
		a.listener.OnReplaceRej(ctx, order)
	case lifecycle.CallbackCancelAck:
		a.listener.OnCancelAck(ctx, order)
	case lifecycle.CallbackCancelRej:
		a.listener.OnCancelRej(ctx, order)
	case lifecycle.CallbackExecution:
		a.listener.OnExecution(ctx, order, execution)
	}
}

// discard logs and counts an unrecognized inbound event. The event still
// goes through the state machine, which leaves the order untouched.
func (a *Adapter) discard(orderID, reason, message string, fields ...zap.Field) {
	metrics.DroppedEvents.WithLabelValues(reason).Inc()
	a.logger.Error(message, fields...)
	if _, err := a.store.Update(orderID, func(o *model.Order) {
		a.machine.Apply(o, lifecycle.EventUnrecognized)
	}); err != nil {
		a.logger.Warn("Unrecognized event for unregistered order", append(fields, zap.Error(err))...)
	}
}

// reject logs and counts an inbound event dropped without a transition.
func (a *Adapter) reject(reason string, err error, fields ...zap.Field) error {
	metrics.DroppedEvents.WithLabelValues(reason).Inc()
	a.logger.Error("Dropping inbound event",
		append(fields, zap.String("reason", reason), zap.Error(err))...,
	)
	return err
}

type fillReport struct {
	leaves     decimal.Decimal
	cumulative decimal.Decimal
	execution  *model.Execution
}

func readFill(msg *Message, orderID string) (*fillReport, error) {
	execID, err := msg.Get(TagExecID)
	if err != nil {
		return nil, err
	}
	transactTime, err := msg.Get(TagTransactTime)
	if err != nil {
		return nil, err
	}
	leaves, err := msg.Decimal(TagLeavesQty)
	if err != nil {
		return nil, err
	}
	cum, err := msg.Decimal(TagCumQty)
	if err != nil {
		return nil, err
	}
	lastQty, err := msg.Decimal(TagLastQty)
	if err != nil {
		return nil, err
	}
	lastPx, err := msg.Decimal(TagLastPx)
	if err != nil {
		return nil, err
	}
	return &fillReport{
		leaves:     leaves,
		cumulative: cum,
		execution: &model.Execution{
			OrderID:      orderID,
			ExecID:       execID,
			TransactTime: transactTime,
			LastQty:      lastQty,
			LastPrice:    lastPx,
		},
	}, nil
}

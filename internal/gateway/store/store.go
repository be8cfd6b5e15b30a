// Package store holds the correlation maps between request identifiers,
// order identifiers, venue order identifiers and executions, together with
// the authoritative order snapshots.
package store

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/clordid"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
	"github.com/Aidin1998/pincex_gateway/pkg/metrics"
)

const (
	lockStripes = 256
	execKeySep  = "\x00"
)

// Store is the correlation store. Entries are never removed.
//
// mu guards the maps. The striped order locks serialize every
// read-modify-write of an order's current request id and every mutation of
// its snapshot; they are always taken before mu.
type Store struct {
	logger *zap.Logger

	mu             sync.RWMutex
	requestToOrder map[string]string // every request id ever issued
	currentRequest map[string]string // order id -> most recent request id
	marketToOrder  map[string]string // venue order id -> order id, write-once
	orders         map[string]*model.Order
	executions     map[string]*model.Execution
	byOrder        *btree.Map[string, *model.Execution] // order id + exec id

	locks [lockStripes]sync.Mutex
}

// New creates an empty correlation store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger:         logger.Named("correlation-store"),
		requestToOrder: make(map[string]string),
		currentRequest: make(map[string]string),
		marketToOrder:  make(map[string]string),
		orders:         make(map[string]*model.Order),
		executions:     make(map[string]*model.Execution),
		byOrder:        btree.NewMap[string, *model.Execution](32),
	}
}

// Lock acquires the lock serializing updates of orderID and returns its release.
func (s *Store) Lock(orderID string) func() {
	m := &s.locks[xxhash.Sum64String(orderID)%lockStripes]
	m.Lock()
	return m.Unlock
}

// Register records requestID as issued for order, makes it the order's current
// request id and upserts the order snapshot.
func (s *Store) Register(requestID string, order *model.Order) error {
	if _, _, err := clordid.Parse(requestID); err != nil {
		return err
	}
	unlock := s.Lock(order.OrderID)
	defer unlock()
	s.register(requestID, order)
	return nil
}

func (s *Store) register(requestID string, order *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.requestToOrder[requestID]; ok && existing != order.OrderID {
		s.logger.Warn("Request id is already mapped to another order",
			zap.String("cl_ord_id", requestID),
			zap.String("order_id", order.OrderID),
			zap.String("mapped_order_id", existing),
		)
	}
	s.requestToOrder[requestID] = order.OrderID

	s.logger.Debug("Updating current request id",
		zap.String("order_id", order.OrderID),
		zap.String("cl_ord_id", requestID),
	)
	s.currentRequest[order.OrderID] = requestID

	snapshot := order.Clone()
	if prev, ok := s.orders[order.OrderID]; ok {
		// Executed quantity is only ever reported by the venue.
		snapshot.ExecutedQty = prev.ExecutedQty
		if snapshot.RejectReason == nil {
			snapshot.RejectReason = prev.RejectReason
		}
	}
	s.orders[order.OrderID] = snapshot
	metrics.OrdersTracked.Set(float64(len(s.orders)))
}

// NextRequestID advances the current request id of orderID and returns it.
func (s *Store) NextRequestID(orderID string) (string, error) {
	unlock := s.Lock(orderID)
	defer unlock()
	return s.nextRequestID(orderID)
}

func (s *Store) nextRequestID(orderID string) (string, error) {
	s.mu.RLock()
	current, ok := s.currentRequest[orderID]
	s.mu.RUnlock()
	if !ok {
		return "", apperrors.UnknownOrder.Explain("order %s has no current request id", orderID)
	}

	next, err := clordid.Next(current)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.currentRequest[orderID] = next
	s.mu.Unlock()
	return next, nil
}

// Issue obtains a request id for order and registers it in one critical
// section: the initial id when initial is set, otherwise the next id in the
// order's sequence. Once an order has a sequence, asking for its initial id
// again fails with DuplicateOrder.
func (s *Store) Issue(order *model.Order, initial bool) (string, error) {
	unlock := s.Lock(order.OrderID)
	defer unlock()

	var requestID string
	if initial {
		s.mu.RLock()
		current, exists := s.currentRequest[order.OrderID]
		s.mu.RUnlock()
		if exists {
			return "", apperrors.DuplicateOrder.Explain("order %s is already registered, current request id %s", order.OrderID, current)
		}
		requestID = clordid.Initial(order.OrderID)
	} else {
		next, err := s.nextRequestID(order.OrderID)
		if err != nil {
			return "", err
		}
		requestID = next
	}
	s.register(requestID, order)
	return requestID, nil
}

// ResolveOrderID returns the order a request id was issued for.
func (s *Store) ResolveOrderID(requestID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orderID, ok := s.requestToOrder[requestID]
	if !ok {
		return "", apperrors.UnknownRequestID.Explain("no order for request id %s", requestID)
	}
	return orderID, nil
}

// ResolveOrder finds an order by request id, falling back to the venue order
// id when the request id was never issued here. It returns a copy of the
// snapshot.
func (s *Store) ResolveOrder(requestID, marketOrderID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if orderID, ok := s.requestToOrder[requestID]; ok {
		if order, ok := s.orders[orderID]; ok {
			return order.Clone(), nil
		}
	}
	if marketOrderID != "" {
		if orderID, ok := s.marketToOrder[marketOrderID]; ok {
			if order, ok := s.orders[orderID]; ok {
				return order.Clone(), nil
			}
		}
	}
	return nil, apperrors.OrderNotFound.Explain("no order for cl_ord_id=%s market_order_id=%s", requestID, marketOrderID)
}

// BindMarketOrderID binds a venue order id to orderID unless it is already
// bound. It reports whether a new binding was made.
func (s *Store) BindMarketOrderID(marketOrderID, orderID string) bool {
	if marketOrderID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.marketToOrder[marketOrderID]; ok {
		return false
	}
	s.marketToOrder[marketOrderID] = orderID
	return true
}

// RecordExecution stores an execution under its id. A repeated id replaces
// the earlier record.
func (s *Store) RecordExecution(execID string, execution *model.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.executions[execID]; ok {
		s.logger.Info("Execution replaced by venue correction",
			zap.String("exec_id", execID),
			zap.String("order_id", execution.OrderID),
			zap.String("previous_order_id", prev.OrderID),
		)
		s.byOrder.Delete(execKey(prev.OrderID, execID))
	}
	s.executions[execID] = execution
	s.byOrder.Set(execKey(execution.OrderID, execID), execution)
}

func execKey(orderID, execID string) string {
	return orderID + execKeySep + execID
}

// Update applies fn to the live snapshot of orderID under the order lock and
// returns a copy of the result.
func (s *Store) Update(orderID string, fn func(*model.Order)) (*model.Order, error) {
	unlock := s.Lock(orderID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, apperrors.UnknownOrder.Explain("order %s is not registered", orderID)
	}
	fn(order)
	return order.Clone(), nil
}

// Order returns a copy of the snapshot of orderID.
func (s *Store) Order(orderID string) (*model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// CurrentRequestID returns the most recently issued request id of orderID.
func (s *Store) CurrentRequestID(orderID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.currentRequest[orderID]
	return id, ok
}

// MarketOrderID returns the order bound to a venue order id.
func (s *Store) MarketOrderID(marketOrderID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.marketToOrder[marketOrderID]
	return id, ok
}

// Execution returns the execution recorded under execID.
func (s *Store) Execution(execID string) (*model.Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[execID]
	return e, ok
}

// ExecutionsFor returns the executions of orderID ordered by execution id.
func (s *Store) ExecutionsFor(orderID string) []*model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := orderID + execKeySep
	var out []*model.Execution
	s.byOrder.Ascend(prefix, func(key string, e *model.Execution) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		out = append(out, e)
		return true
	})
	return out
}

// Len returns the number of registered orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

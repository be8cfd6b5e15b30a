// Package handlers contains the order request handlers of the admin API.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/api/responses"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
	"github.com/Aidin1998/pincex_gateway/pkg/validation"
)

// OrderService is the gateway surface used by the handlers.
type OrderService interface {
	ProcessRequest(ctx context.Context, requestType model.RequestType, order *model.Order) error
	Order(orderID string) (*model.Order, bool)
	CurrentRequestID(orderID string) (string, bool)
	Executions(orderID string) []*model.Execution
	ResolveRequest(requestID string) (string, error)
	SessionActive() bool
}

// NewOrderRequest is the body of POST /orders
type NewOrderRequest struct {
	OrderID     string            `json:"order_id" validate:"omitempty,order_id"`
	Symbol      string            `json:"symbol" validate:"required,secure_string"`
	Side        model.Side        `json:"side" validate:"required,fix_side"`
	Quantity    decimal.Decimal   `json:"qty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	Currency    string            `json:"currency,omitempty" validate:"omitempty,secure_string"`
	OrderType   model.OrderType   `json:"order_type" validate:"required,fix_ord_type"`
	TimeInForce model.TimeInForce `json:"time_in_force" validate:"omitempty,fix_tif"`
}

// ReplaceOrderRequest is the body of PUT /orders/:id
type ReplaceOrderRequest struct {
	Quantity    *decimal.Decimal  `json:"qty,omitempty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	TimeInForce model.TimeInForce `json:"time_in_force,omitempty" validate:"omitempty,fix_tif"`
}

// OrderResponse is an order snapshot with its most recent request id
type OrderResponse struct {
	Order     *model.Order `json:"order"`
	RequestID string       `json:"cl_ord_id,omitempty"`
	Status    string       `json:"status"`
}

// OrderHandlers serves the order endpoints
type OrderHandlers struct {
	logger   *zap.Logger
	service  OrderService
	validate *validation.Validator
}

// NewOrderHandlers creates the order handlers
func NewOrderHandlers(service OrderService, validate *validation.Validator, logger *zap.Logger) *OrderHandlers {
	return &OrderHandlers{
		logger:   logger.Named("order-handlers"),
		service:  service,
		validate: validate,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req NewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid request body", err)
		return
	}
	if err := h.validate.ValidateStruct(&req); err != nil {
		responses.Error(c, err)
		return
	}
	if req.OrderID == "" {
		req.OrderID = uuid.NewString()
	}

	order := &model.Order{
		OrderID:     req.OrderID,
		Side:        req.Side,
		Symbol:      req.Symbol,
		Quantity:    req.Quantity,
		Currency:    req.Currency,
		Type:        req.OrderType,
		TimeInForce: req.TimeInForce,
	}
	if req.Price != nil {
		order.Price = *req.Price
	}

	h.process(c, model.RequestTypeNew, order)
}

// ReplaceOrder handles PUT /orders/:id
func (h *OrderHandlers) ReplaceOrder(c *gin.Context) {
	var req ReplaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid request body", err)
		return
	}
	if err := h.validate.ValidateStruct(&req); err != nil {
		responses.Error(c, err)
		return
	}

	order, ok := h.service.Order(c.Param("id"))
	if !ok {
		responses.Error(c, apperrors.UnknownOrder.Explain("order %s is not registered", c.Param("id")))
		return
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.Price != nil {
		order.Price = *req.Price
	}
	if req.TimeInForce != "" {
		order.TimeInForce = req.TimeInForce
	}

	h.process(c, model.RequestTypeAmend, order)
}

// CancelOrder handles DELETE /orders/:id
func (h *OrderHandlers) CancelOrder(c *gin.Context) {
	order, ok := h.service.Order(c.Param("id"))
	if !ok {
		responses.Error(c, apperrors.UnknownOrder.Explain("order %s is not registered", c.Param("id")))
		return
	}
	h.process(c, model.RequestTypeCancel, order)
}

func (h *OrderHandlers) process(c *gin.Context, requestType model.RequestType, order *model.Order) {
	if err := h.service.ProcessRequest(c.Request.Context(), requestType, order); err != nil {
		h.logger.Warn("Order request refused",
			zap.String("order_id", order.OrderID),
			zap.Stringer("request_type", requestType),
			zap.Error(err),
		)
		responses.Error(c, err)
		return
	}
	responses.Accepted(c, h.snapshot(order.OrderID, order))
}

func (h *OrderHandlers) snapshot(orderID string, fallback *model.Order) OrderResponse {
	order, ok := h.service.Order(orderID)
	if !ok {
		order = fallback
	}
	requestID, _ := h.service.CurrentRequestID(orderID)
	return OrderResponse{Order: order, RequestID: requestID, Status: order.Status.String()}
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	if _, ok := h.service.Order(orderID); !ok {
		responses.Error(c, apperrors.UnknownOrder.Explain("order %s is not registered", orderID))
		return
	}
	responses.Success(c, h.snapshot(orderID, nil))
}

// GetExecutions handles GET /orders/:id/executions
func (h *OrderHandlers) GetExecutions(c *gin.Context) {
	orderID := c.Param("id")
	if _, ok := h.service.Order(orderID); !ok {
		responses.Error(c, apperrors.UnknownOrder.Explain("order %s is not registered", orderID))
		return
	}
	executions := h.service.Executions(orderID)
	if executions == nil {
		executions = []*model.Execution{}
	}
	responses.Success(c, executions)
}

// ResolveRequest handles GET /requests/:clOrdId
func (h *OrderHandlers) ResolveRequest(c *gin.Context) {
	requestID := c.Param("clOrdId")
	orderID, err := h.service.ResolveRequest(requestID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, gin.H{"cl_ord_id": requestID, "order_id": orderID})
}

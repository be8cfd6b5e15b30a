package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Aidin1998/pincex_gateway/api"
	"github.com/Aidin1998/pincex_gateway/internal/gateway"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/events"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
)

type captureSession struct {
	mu   sync.Mutex
	sent []*adapter.Request
}

func (s *captureSession) Send(_ context.Context, req *adapter.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type orderBody struct {
	Order     model.Order `json:"order"`
	RequestID string      `json:"cl_ord_id"`
	Status    string      `json:"status"`
}

type problemBody struct {
	Status int    `json:"status"`
	Kind   string `json:"kind"`
}

func setupRouter(t *testing.T) (*gin.Engine, *gateway.Gateway, *captureSession) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	session := &captureSession{}
	g := gateway.New(logger, store.New(logger), session, events.NewInMemoryBus(logger), adapter.DefaultFieldPolicy())
	g.Adapter().OnLogon("S1")
	return api.NewServer(logger, g).Router(), g, session
}

func do(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderBody {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)
	var body orderBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) problemBody {
	t.Helper()
	var p problemBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupRouter(t)
	w := do(router, http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["session"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	w := do(router, http.MethodGet, "/api/v1/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_orders_tracked")
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	router, g, session := setupRouter(t)

	w := do(router, http.MethodPost, "/api/v1/orders", map[string]any{
		"order_id":      "API1",
		"symbol":        "BTC-USD",
		"side":          "1",
		"qty":           "2",
		"price":         "100.25",
		"currency":      "USD",
		"order_type":    "2",
		"time_in_force": "1",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decodeOrder(t, w)
	assert.Equal(t, "API1_1", created.RequestID)
	assert.Equal(t, "PENDING_NEW", created.Status)

	w = do(router, http.MethodPut, "/api/v1/orders/API1", map[string]any{"price": "99"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	replaced := decodeOrder(t, w)
	assert.Equal(t, "API1_2", replaced.RequestID)
	assert.Equal(t, "PENDING_REPLACE", replaced.Status)
	assert.Equal(t, "99", session.sent[1].Price.String())

	require.NoError(t, g.Adapter().OnMessage(context.Background(), adapter.NewMessage(model.MsgTypeExecutionReport, map[adapter.Tag]string{
		adapter.TagClOrdID:      "API1_2",
		adapter.TagExecType:     string(model.ExecTypeTrade),
		adapter.TagExecID:       "EX1",
		adapter.TagTransactTime: "20240101-00:00:00",
		adapter.TagLeavesQty:    "1",
		adapter.TagCumQty:       "1",
		adapter.TagLastQty:      "1",
		adapter.TagLastPx:       "99",
	})))

	w = do(router, http.MethodGet, "/api/v1/orders/API1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PARTIALLY_FILLED", decodeOrder(t, w).Status)

	w = do(router, http.MethodGet, "/api/v1/orders/API1/executions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var execs []model.Execution
	require.NoError(t, json.Unmarshal(env.Data, &execs))
	require.Len(t, execs, 1)
	assert.Equal(t, "EX1", execs[0].ExecID)

	w = do(router, http.MethodDelete, "/api/v1/orders/API1", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "API1_3", decodeOrder(t, w).RequestID)

	w = do(router, http.MethodGet, "/api/v1/requests/API1_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var resolved map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	assert.Equal(t, "API1", resolved["order_id"])
}

func TestCreateOrderMintsOrderID(t *testing.T) {
	router, _, session := setupRouter(t)

	w := do(router, http.MethodPost, "/api/v1/orders", map[string]any{
		"symbol":     "ETH-USD",
		"side":       "2",
		"qty":        "1",
		"order_type": "1",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decodeOrder(t, w)
	assert.NotEmpty(t, created.Order.OrderID)
	assert.NotContains(t, created.Order.OrderID, "_")
	assert.Equal(t, created.Order.OrderID+"_1", created.RequestID)
	require.Len(t, session.sent, 1)
	assert.Nil(t, session.sent[0].Price)
}

func TestErrorMapping(t *testing.T) {
	router, _, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"unknown order", http.MethodGet, "/api/v1/orders/NOPE", nil, http.StatusNotFound, "UnknownOrder"},
		{"unknown replace", http.MethodPut, "/api/v1/orders/NOPE", map[string]any{"qty": "1"}, http.StatusNotFound, "UnknownOrder"},
		{"unknown cancel", http.MethodDelete, "/api/v1/orders/NOPE", nil, http.StatusNotFound, "UnknownOrder"},
		{"unknown request", http.MethodGet, "/api/v1/requests/NOPE_1", nil, http.StatusNotFound, "UnknownRequestId"},
		{"separator in id", http.MethodPost, "/api/v1/orders", map[string]any{
			"order_id": "A_B", "symbol": "BTC-USD", "side": "1", "qty": "1", "order_type": "1",
		}, http.StatusBadRequest, "InvalidOrder"},
		{"missing symbol", http.MethodPost, "/api/v1/orders", map[string]any{
			"side": "1", "qty": "1", "order_type": "1",
		}, http.StatusBadRequest, "InvalidOrder"},
		{"zero quantity", http.MethodPost, "/api/v1/orders", map[string]any{
			"symbol": "BTC-USD", "side": "1", "qty": "0", "order_type": "1",
		}, http.StatusBadRequest, "InvalidOrder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			p := decodeProblem(t, w)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.kind, p.Kind)
		})
	}
}

func TestCreateExistingOrderConflicts(t *testing.T) {
	router, g, session := setupRouter(t)
	body := map[string]any{
		"order_id": "DUP1", "symbol": "BTC-USD", "side": "1", "qty": "2", "order_type": "1",
	}

	w := do(router, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	w = do(router, http.MethodPut, "/api/v1/orders/DUP1", map[string]any{"qty": "3"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "DuplicateOrder", decodeProblem(t, w).Kind)

	current, _ := g.CurrentRequestID("DUP1")
	assert.Equal(t, "DUP1_2", current)
	assert.Len(t, session.sent, 2)
}

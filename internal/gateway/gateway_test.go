package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/events"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

type nullSession struct {
	mu   sync.Mutex
	sent []*adapter.Request
}

func (s *nullSession) Send(_ context.Context, req *adapter.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

type GatewayTestSuite struct {
	suite.Suite
	gateway *Gateway
	session *nullSession
	bus     *events.InMemoryBus

	mu       sync.Mutex
	received []events.Event
}

func (s *GatewayTestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	s.session = &nullSession{}
	s.bus = events.NewInMemoryBus(logger)
	s.received = nil
	s.bus.Subscribe(events.TopicOrders, func(e events.Event) {
		s.mu.Lock()
		s.received = append(s.received, e)
		s.mu.Unlock()
	})
	s.gateway = New(logger, store.New(logger), s.session, s.bus, adapter.DefaultFieldPolicy())
	s.gateway.Adapter().OnLogon("S1")
}

func (s *GatewayTestSuite) order(id string) *model.Order {
	return &model.Order{
		OrderID:     id,
		Side:        model.SideSell,
		Symbol:      "BTC-USD",
		Quantity:    decimal.NewFromInt(5),
		Price:       decimal.NewFromInt(30000),
		Currency:    "USD",
		Type:        model.OrderTypeLimit,
		TimeInForce: model.TimeInForceDay,
	}
}

func (s *GatewayTestSuite) deliver(requestID string, execType model.ExecType, extra map[adapter.Tag]string) {
	fields := map[adapter.Tag]string{
		adapter.TagClOrdID:  requestID,
		adapter.TagExecType: string(execType),
	}
	for k, v := range extra {
		fields[k] = v
	}
	s.Require().NoError(s.gateway.Adapter().OnMessage(context.Background(), adapter.NewMessage(model.MsgTypeExecutionReport, fields)))
}

func (s *GatewayTestSuite) eventTypes() []string {
	s.bus.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.received))
	for _, e := range s.received {
		types = append(types, e.Type)
	}
	return types
}

func (s *GatewayTestSuite) TestProcessRequestRoutesByType() {
	ctx := context.Background()
	order := s.order("G1")

	s.Require().NoError(s.gateway.ProcessRequest(ctx, model.RequestTypeNew, order))
	s.Require().NoError(s.gateway.ProcessRequest(ctx, model.RequestTypeAmend, order))
	s.Require().NoError(s.gateway.ProcessRequest(ctx, model.RequestTypeCancel, order))

	s.Require().Len(s.session.sent, 3)
	s.Equal(model.MsgTypeNewOrderSingle, s.session.sent[0].MsgType)
	s.Equal(model.MsgTypeOrderCancelReplaceRequest, s.session.sent[1].MsgType)
	s.Equal(model.MsgTypeOrderCancelRequest, s.session.sent[2].MsgType)
	s.Equal("G1_3", s.session.sent[2].RequestID)

	current, ok := s.gateway.CurrentRequestID("G1")
	s.True(ok)
	s.Equal("G1_3", current)
}

func (s *GatewayTestSuite) TestProcessRequestRejectsUnknownType() {
	err := s.gateway.ProcessRequest(context.Background(), model.RequestType("9"), s.order("G2"))
	s.True(errors.Is(err, apperrors.InvalidOrder))
	s.Empty(s.session.sent)
}

func (s *GatewayTestSuite) TestCallbacksPublishResponses() {
	ctx := context.Background()
	order := s.order("G3")

	s.Require().NoError(s.gateway.SendNew(ctx, order))
	s.deliver("G3_1", model.ExecTypeNew, map[adapter.Tag]string{adapter.TagOrderID: "M3"})
	s.Require().NoError(s.gateway.SendReplace(ctx, order))
	s.deliver("G3_2", model.ExecTypeReplace, nil)
	s.deliver("G3_2", model.ExecTypeTrade, map[adapter.Tag]string{
		adapter.TagExecID:       "E2",
		adapter.TagTransactTime: "20240101-00:00:01",
		adapter.TagLeavesQty:    "2",
		adapter.TagCumQty:       "3",
		adapter.TagLastQty:      "3",
		adapter.TagLastPx:       "30000",
	})
	s.Require().NoError(s.gateway.SendCancel(ctx, order))
	s.deliver("G3_3", model.ExecTypeCanceled, nil)

	s.ElementsMatch([]string{
		events.TypeNewAck,
		events.TypeReplaceAck,
		events.TypeExecution,
		events.TypeCancelAck,
	}, s.eventTypes())

	snapshot, ok := s.gateway.Order("G3")
	s.Require().True(ok)
	s.Equal(model.StatusCanceled, snapshot.Status)
	s.True(snapshot.ExecutedQty.Equal(decimal.NewFromInt(3)))

	execs := s.gateway.Executions("G3")
	s.Require().Len(execs, 1)
	s.Equal("E2", execs[0].ExecID)

	orderID, err := s.gateway.ResolveRequest("G3_2")
	s.Require().NoError(err)
	s.Equal("G3", orderID)
}

func (s *GatewayTestSuite) TestRejectsPublishResponses() {
	ctx := context.Background()
	order := s.order("G4")

	s.Require().NoError(s.gateway.SendNew(ctx, order))
	s.deliver("G4_1", model.ExecTypeRejected, map[adapter.Tag]string{adapter.TagOrdRejReason: "3"})

	s.Equal([]string{events.TypeNewRej}, s.eventTypes())
	snapshot, _ := s.gateway.Order("G4")
	s.Equal(model.StatusNewRejected, snapshot.Status)
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func TestPublishFailureIsLogged(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewKafkaBus(failingWriter{}, logger)
	g := New(logger, store.New(logger), &nullSession{}, bus, adapter.DefaultFieldPolicy())
	g.Adapter().OnLogon("S1")

	order := &model.Order{
		OrderID:  "PF",
		Side:     model.SideBuy,
		Symbol:   "BTC-USD",
		Quantity: decimal.NewFromInt(1),
		Type:     model.OrderTypeMarket,
	}
	require.NoError(t, g.SendNew(context.Background(), order))
	require.NoError(t, g.Adapter().OnExecutionReport(context.Background(), adapter.NewMessage(model.MsgTypeExecutionReport, map[adapter.Tag]string{
		adapter.TagClOrdID:  "PF_1",
		adapter.TagExecType: string(model.ExecTypeNew),
	})))

	snapshot, _ := g.Order("PF")
	assert.Equal(t, model.StatusNew, snapshot.Status)
	assert.True(t, g.SessionActive())
}

type failingWriter struct{}

func (failingWriter) WriteMessages(context.Context, ...kafka.Message) error {
	return errors.New("broker unavailable")
}

func (failingWriter) Close() error { return nil }

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.pending) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type recordingDispatcher struct {
	messages []*adapter.Message
	err      error
}

func (d *recordingDispatcher) OnMessage(_ context.Context, msg *adapter.Message) error {
	d.messages = append(d.messages, msg)
	return d.err
}

func wire(t *testing.T, msgType model.MsgType, fields map[adapter.Tag]string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(&adapter.Message{Type: msgType, SessionID: "S1", Fields: fields})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(fields[adapter.TagClOrdID]), Value: data}
}

func TestDecodeWireFormat(t *testing.T) {
	msg, err := Decode([]byte(`{"msg_type":"8","session_id":"S1","fields":{"11":"X_2","150":"F","151":"0"}}`))
	require.NoError(t, err)
	assert.Equal(t, model.MsgTypeExecutionReport, msg.Type)
	assert.Equal(t, "S1", msg.SessionID)
	assert.Equal(t, "X_2", msg.Fields[adapter.TagClOrdID])
	assert.Equal(t, "F", msg.Fields[adapter.TagExecType])
	assert.Equal(t, "0", msg.Fields[adapter.TagLeavesQty])

	_, err = Decode([]byte(`{"fields":{}}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	msg, err = Decode([]byte(`{"msg_type":"A"}`))
	require.NoError(t, err)
	assert.NotNil(t, msg.Fields)
}

func TestProducerWritesKeyedRequests(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducer(writer, zaptest.NewLogger(t))

	price := decimal.RequireFromString("10.5")
	req := &adapter.Request{
		MsgType:     model.MsgTypeNewOrderSingle,
		RequestType: model.RequestTypeNew,
		RequestID:   "X_1",
		OrderID:     "X",
		Symbol:      "BTC-USD",
		Side:        model.SideSell,
		Quantity:    decimal.NewFromInt(3),
		Price:       &price,
	}
	require.NoError(t, p.Send(context.Background(), req))

	require.Len(t, writer.messages, 1)
	m := writer.messages[0]
	assert.Equal(t, "X", string(m.Key))
	assert.Equal(t, "D", string(m.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &body))
	assert.Equal(t, "X_1", body["cl_ord_id"])
	assert.Equal(t, "10.5", body["price"])
	assert.NotContains(t, body, "currency")
	assert.NotContains(t, body, "OrderID")

	writer.err = errors.New("leader not available")
	assert.Error(t, p.Send(context.Background(), req))
}

func TestConsumerDispatchesInOrderAndCommitsEverything(t *testing.T) {
	reader := &fakeReader{}
	reader.pending = []kafka.Message{
		wire(t, model.MsgTypeExecutionReport, map[adapter.Tag]string{adapter.TagClOrdID: "A_1", adapter.TagExecType: "0"}),
		{Key: []byte("garbage"), Value: []byte("{")},
		wire(t, model.MsgTypeOrderCancelReject, map[adapter.Tag]string{adapter.TagClOrdID: "A_2"}),
	}
	dispatcher := &recordingDispatcher{err: apperrors.OrderNotFound}

	c := NewConsumer(reader, dispatcher, zaptest.NewLogger(t))
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, dispatcher.messages, 2)
	assert.Equal(t, "A_1", dispatcher.messages[0].Fields[adapter.TagClOrdID])
	assert.Equal(t, "A_2", dispatcher.messages[1].Fields[adapter.TagClOrdID])
	assert.Len(t, reader.committed, 3)
}

func TestConsumerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &fakeReader{pending: []kafka.Message{{Value: []byte(`{"msg_type":"0"}`)}}}
	dispatcher := &recordingDispatcher{}

	require.NoError(t, NewConsumer(reader, dispatcher, zaptest.NewLogger(t)).Run(ctx))
	assert.Empty(t, dispatcher.messages)
}

func TestRoundTripThroughAdapter(t *testing.T) {
	logger := zaptest.NewLogger(t)
	writer := &fakeWriter{}
	a := adapter.New(logger, store.New(logger), nil, NewProducer(writer, logger), adapter.DefaultFieldPolicy())

	reader := &fakeReader{pending: []kafka.Message{
		wire(t, model.MsgTypeLogon, map[adapter.Tag]string{}),
	}}
	require.NoError(t, NewConsumer(reader, a, logger).Run(context.Background()))
	require.True(t, a.SessionActive())

	order := &model.Order{
		OrderID:  "RT",
		Side:     model.SideBuy,
		Symbol:   "ETH-USD",
		Quantity: decimal.NewFromInt(2),
		Type:     model.OrderTypeMarket,
	}
	require.NoError(t, a.SendNew(context.Background(), order))
	require.Len(t, writer.messages, 1)

	reader.pending = []kafka.Message{
		wire(t, model.MsgTypeExecutionReport, map[adapter.Tag]string{
			adapter.TagClOrdID:  "RT_1",
			adapter.TagExecType: string(model.ExecTypeNew),
			adapter.TagOrderID:  "VENUE-1",
		}),
	}
	require.NoError(t, NewConsumer(reader, a, logger).Run(context.Background()))

	stored, ok := a.Store().Order("RT")
	require.True(t, ok)
	assert.Equal(t, model.StatusNew, stored.Status)
	orderID, ok := a.Store().MarketOrderID("VENUE-1")
	require.True(t, ok)
	assert.Equal(t, "RT", orderID)
}

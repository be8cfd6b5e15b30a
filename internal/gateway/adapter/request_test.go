package adapter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/model"
	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

func TestDefaultFieldPolicy(t *testing.T) {
	policy := DefaultFieldPolicy()
	order := limitOrder("P")

	tests := []struct {
		requestType model.RequestType
		msgType     model.MsgType
		price       bool
		currency    bool
		orderType   bool
		tif         bool
	}{
		{model.RequestTypeNew, model.MsgTypeNewOrderSingle, true, true, true, true},
		{model.RequestTypeAmend, model.MsgTypeOrderCancelReplaceRequest, true, false, true, true},
		{model.RequestTypeCancel, model.MsgTypeOrderCancelRequest, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.requestType.String(), func(t *testing.T) {
			req := policy.BuildRequest(tt.requestType, "P_1", order)
			assert.Equal(t, tt.msgType, req.MsgType)
			assert.Equal(t, "P_1", req.RequestID)
			assert.Equal(t, "BTC-USD", req.Symbol)
			assert.Equal(t, model.SideBuy, req.Side)
			assert.True(t, req.Quantity.Equal(decimal.NewFromInt(10)))
			assert.Equal(t, tt.price, req.Price != nil)
			assert.Equal(t, tt.currency, req.Currency != "")
			assert.Equal(t, tt.orderType, req.OrderType != "")
			assert.Equal(t, tt.tif, req.TimeInForce != "")
		})
	}
}

func TestBuildRequestCopiesPrice(t *testing.T) {
	order := limitOrder("P")
	req := DefaultFieldPolicy().BuildRequest(model.RequestTypeNew, "P_1", order)
	require.NotNil(t, req.Price)

	order.Price = decimal.NewFromInt(1)
	assert.True(t, req.Price.Equal(decimal.RequireFromString("101.5")))
}

func TestMessageGetters(t *testing.T) {
	msg := execReport(map[Tag]string{
		TagClOrdID:      "X_1",
		TagLeavesQty:    "2.5",
		TagOrdRejReason: "x",
		TagText:         "",
	})

	v, err := msg.Get(TagClOrdID)
	require.NoError(t, err)
	assert.Equal(t, "X_1", v)

	_, err = msg.Get(TagExecID)
	assert.ErrorIs(t, err, apperrors.MissingField)
	_, ok := msg.Optional(TagText)
	assert.False(t, ok)

	d, err := msg.Decimal(TagLeavesQty)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))

	_, err = msg.Int(TagOrdRejReason)
	assert.ErrorIs(t, err, apperrors.InvalidField)

	assert.Equal(t, "ExecID(17)", TagExecID.String())
	assert.Equal(t, "9999", Tag(9999).String())
}

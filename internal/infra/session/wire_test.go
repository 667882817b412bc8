package session

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
)

func TestDecodeNewOrder(t *testing.T) {
	evt, err := DecodeInbound([]byte(`{"msgType":"D","clOrdId":"c1","symbol":"BTC-USD","side":"buy","ordType":"2","orderQty":"100","price":"50.00","account":"acct"}`))
	require.NoError(t, err)
	require.Equal(t, schema.InboundNewOrder, evt.Kind)
	require.NotNil(t, evt.Order)
	require.Equal(t, schema.SideBuy, evt.Order.Side)
	require.Equal(t, schema.OrderTypeLimit, evt.Order.OrderType)
	require.True(t, evt.Order.Quantity.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, evt.Order.Price)
	require.Equal(t, "50", evt.Order.Price.String())
	require.Equal(t, "acct", evt.Order.Account)
}

func TestDecodeKeepsUnknownSideForExecutor(t *testing.T) {
	evt, err := DecodeInbound([]byte(`{"msgType":"D","clOrdId":"c1","symbol":"X","side":"9","ordType":"1","orderQty":10}`))
	require.NoError(t, err)
	require.Equal(t, schema.Side("9"), evt.Order.Side)
	require.Equal(t, schema.OrderTypeMarket, evt.Order.OrderType)
	require.Nil(t, evt.Order.Price)
}

func TestDecodeCancelAndOther(t *testing.T) {
	evt, err := DecodeInbound([]byte(`{"msgType":"F","clOrdId":"c2","origClOrdId":"c1","symbol":"X","side":"2","orderQty":"5"}`))
	require.NoError(t, err)
	require.Equal(t, schema.InboundCancelRequest, evt.Kind)
	require.Equal(t, "c1", evt.Cancel.OrigClOrdID)
	require.Equal(t, schema.SideSell, evt.Cancel.Side)

	evt, err = DecodeInbound([]byte(`{"msgType":"G"}`))
	require.NoError(t, err)
	require.Equal(t, schema.InboundOther, evt.Kind)
	require.Equal(t, schema.MsgType("G"), evt.MsgType)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := DecodeInbound([]byte(`{`))
	require.True(t, errs.HasCode(err, errs.CodeInvalid))

	_, err = DecodeInbound([]byte(`{"clOrdId":"x"}`))
	require.True(t, errs.HasCode(err, errs.CodeInvalid))
}

func TestEncodeExecutionReportFlattensFields(t *testing.T) {
	qty := decimal.NewFromInt(100)
	data, err := EncodeOutbound(&schema.ExecutionReport{
		OrderID:   "1",
		ExecID:    "1",
		ExecType:  schema.ExecTypeNew,
		OrdStatus: schema.OrdStatusNew,
		Side:      schema.SideBuy,
		LeavesQty: qty,
		CumQty:    decimal.Zero,
		AvgPx:     decimal.Zero,
		ClOrdID:   "c1",
		Symbol:    "X",
		OrderQty:  &qty,
	})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, "8", out["msgType"])
	require.Equal(t, "0", out["execType"])
	require.Equal(t, "c1", out["clOrdId"])
	require.Equal(t, "100", out["orderQty"])
	require.NotContains(t, out, "lastPx")
}

func TestEncodeCancelReject(t *testing.T) {
	data, err := EncodeOutbound(&schema.CancelReject{
		OrderID:          "7",
		ClOrdID:          "c2",
		OrigClOrdID:      "c1",
		OrdStatus:        schema.OrdStatusCanceled,
		CxlRejResponseTo: schema.CxlRejResponseToCancelRequest,
	})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, "9", out["msgType"])
	require.Equal(t, "1", out["cxlRejResponseTo"])
	require.Equal(t, "4", out["ordStatus"])
}

package session

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
)

// Session-level message types handled by the transport itself.
const (
	MsgTypeLogon  schema.MsgType = "A"
	MsgTypeLogout schema.MsgType = "5"
	MsgTypeReject schema.MsgType = "3"
)

// inboundMessage is the flat JSON shape of every client message.
type inboundMessage struct {
	MsgType     string           `json:"msgType"`
	ClOrdID     string           `json:"clOrdId"`
	OrigClOrdID string           `json:"origClOrdId"`
	Symbol      string           `json:"symbol"`
	Account     string           `json:"account"`
	Side        string           `json:"side"`
	OrdType     string           `json:"ordType"`
	OrderQty    decimal.Decimal  `json:"orderQty"`
	Price       *decimal.Decimal `json:"price"`
}

type executionReportMessage struct {
	MsgType schema.MsgType `json:"msgType"`
	*schema.ExecutionReport
}

type cancelRejectMessage struct {
	MsgType schema.MsgType `json:"msgType"`
	*schema.CancelReject
}

type sessionMessage struct {
	MsgType    schema.MsgType `json:"msgType"`
	RefMsgType string         `json:"refMsgType,omitempty"`
	Text       string         `json:"text,omitempty"`
}

// DecodeInbound parses a client frame into an inbound event.
// Side and order type codes are normalised when recognised and passed through
// untouched otherwise, so the executor decides how to treat them.
func DecodeInbound(data []byte) (schema.InboundEvent, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return schema.InboundEvent{}, errs.New("session", errs.CodeInvalid,
			errs.WithMessage("malformed message"),
			errs.WithCause(err))
	}
	msgType := schema.MsgType(strings.TrimSpace(msg.MsgType))
	if msgType == "" {
		return schema.InboundEvent{}, errs.New("session", errs.CodeInvalid,
			errs.WithMessage("msgType required"))
	}

	switch msgType {
	case schema.MsgTypeNewOrderSingle:
		order := schema.OrderRequest{
			ClOrdID:   msg.ClOrdID,
			Symbol:    msg.Symbol,
			Account:   msg.Account,
			Side:      normaliseSide(msg.Side),
			OrderType: normaliseOrderType(msg.OrdType),
			Quantity:  msg.OrderQty,
			Price:     msg.Price,
		}
		return schema.NewOrderEvent(order), nil
	case schema.MsgTypeOrderCancelRequest:
		cancel := schema.CancelRequest{
			ClOrdID:     msg.ClOrdID,
			OrigClOrdID: msg.OrigClOrdID,
			Symbol:      msg.Symbol,
			Side:        normaliseSide(msg.Side),
			Quantity:    msg.OrderQty,
			Account:     msg.Account,
		}
		return schema.NewCancelEvent(cancel), nil
	default:
		return schema.NewOtherEvent(msgType), nil
	}
}

// EncodeOutbound renders an executor message as a JSON frame.
func EncodeOutbound(msg schema.Outbound) ([]byte, error) {
	var payload any
	switch typed := msg.(type) {
	case *schema.ExecutionReport:
		payload = executionReportMessage{MsgType: typed.MsgType(), ExecutionReport: typed}
	case *schema.CancelReject:
		payload = cancelRejectMessage{MsgType: typed.MsgType(), CancelReject: typed}
	default:
		return nil, errs.New("session", errs.CodeUnsupported,
			errs.WithMessage(fmt.Sprintf("cannot encode %T", msg)))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MsgType(), err)
	}
	return data, nil
}

func encodeSessionMessage(msgType schema.MsgType, refMsgType, text string) ([]byte, error) {
	data, err := json.Marshal(sessionMessage{MsgType: msgType, RefMsgType: refMsgType, Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return data, nil
}

func normaliseSide(raw string) schema.Side {
	if side, err := schema.ParseSide(raw); err == nil {
		return side
	}
	return schema.Side(strings.TrimSpace(raw))
}

func normaliseOrderType(raw string) schema.OrderType {
	if ot, err := schema.ParseOrderType(raw); err == nil {
		return ot
	}
	return schema.OrderType(strings.TrimSpace(raw))
}

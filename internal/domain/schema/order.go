package schema

import "github.com/shopspring/decimal"

// OrderRequest represents a new single order received from a session.
type OrderRequest struct {
	ClOrdID   string           `json:"clOrdId"`
	Symbol    string           `json:"symbol"`
	Account   string           `json:"account,omitempty"`
	Side      Side             `json:"side"`
	OrderType OrderType        `json:"ordType"`
	Quantity  decimal.Decimal  `json:"orderQty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// IsLimit reports whether the order carries a limit constraint.
func (o OrderRequest) IsLimit() bool {
	return o.OrderType == OrderTypeLimit
}

// LimitPrice returns the limit price and whether one is present.
func (o OrderRequest) LimitPrice() (decimal.Decimal, bool) {
	if o.Price == nil {
		return decimal.Zero, false
	}
	return *o.Price, true
}

// CancelRequest represents an order cancel request received from a session.
type CancelRequest struct {
	ClOrdID     string          `json:"clOrdId"`
	OrigClOrdID string          `json:"origClOrdId"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"orderQty"`
	Account     string          `json:"account,omitempty"`
}

// InboundKind discriminates inbound application events.
type InboundKind uint8

const (
	// InboundOther marks any message the executor does not act on.
	InboundOther InboundKind = iota
	// InboundNewOrder marks a new single order.
	InboundNewOrder
	// InboundCancelRequest marks an order cancel request.
	InboundCancelRequest
)

func (k InboundKind) String() string {
	switch k {
	case InboundNewOrder:
		return "NewOrder"
	case InboundCancelRequest:
		return "CancelRequest"
	default:
		return "Other"
	}
}

// InboundEvent is the tagged union handed to the executor per inbound message.
// Exactly one of Order or Cancel is set, matching Kind; both are nil for InboundOther.
type InboundEvent struct {
	Kind    InboundKind
	MsgType MsgType
	Order   *OrderRequest
	Cancel  *CancelRequest
}

// NewOrderEvent wraps an order request.
func NewOrderEvent(order OrderRequest) InboundEvent {
	return InboundEvent{Kind: InboundNewOrder, MsgType: MsgTypeNewOrderSingle, Order: &order, Cancel: nil}
}

// NewCancelEvent wraps a cancel request.
func NewCancelEvent(cancel CancelRequest) InboundEvent {
	return InboundEvent{Kind: InboundCancelRequest, MsgType: MsgTypeOrderCancelRequest, Order: nil, Cancel: &cancel}
}

// NewOtherEvent wraps a message type the executor does not handle.
func NewOtherEvent(msgType MsgType) InboundEvent {
	return InboundEvent{Kind: InboundOther, MsgType: msgType, Order: nil, Cancel: nil}
}

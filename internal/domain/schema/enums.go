package schema

import (
	"fmt"
	"strings"
)

// Side captures the direction of an order. Values are FIX tag 54 codes.
type Side string

const (
	// SideBuy indicates a buy order.
	SideBuy Side = "1"
	// SideSell indicates a sell order.
	SideSell Side = "2"
	// SideSellShort indicates a short sale.
	SideSellShort Side = "5"
)

// Valid reports whether s is a recognised side.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideSellShort:
		return true
	default:
		return false
	}
}

// IsSell reports whether s is a sell or sell-short side.
func (s Side) IsSell() bool {
	return s == SideSell || s == SideSellShort
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	case SideSellShort:
		return "SellShort"
	default:
		return "Side(" + string(s) + ")"
	}
}

// ParseSide accepts a FIX code or a case-insensitive name.
func ParseSide(value string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "1", "BUY":
		return SideBuy, nil
	case "2", "SELL":
		return SideSell, nil
	case "5", "SELLSHORT", "SELL_SHORT":
		return SideSellShort, nil
	default:
		return "", fmt.Errorf("unknown side %q", value)
	}
}

// OrderType enumerates supported order types. Values are FIX tag 40 codes.
type OrderType string

const (
	// OrderTypeMarket represents market orders.
	OrderTypeMarket OrderType = "1"
	// OrderTypeLimit represents limit orders.
	OrderTypeLimit OrderType = "2"
)

// Valid reports whether t is a recognised order type.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeLimit:
		return "Limit"
	default:
		return "OrderType(" + string(t) + ")"
	}
}

// ParseOrderType accepts a FIX code or a case-insensitive name.
func ParseOrderType(value string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "1", "MARKET":
		return OrderTypeMarket, nil
	case "2", "LIMIT":
		return OrderTypeLimit, nil
	default:
		return "", fmt.Errorf("unknown order type %q", value)
	}
}

// ExecType describes the event an execution report conveys. Values are FIX tag 150 codes.
type ExecType string

const (
	ExecTypeNew           ExecType = "0"
	ExecTypePartialFill   ExecType = "1"
	ExecTypeFill          ExecType = "2"
	ExecTypeDoneForDay    ExecType = "3"
	ExecTypeCanceled      ExecType = "4"
	ExecTypePendingCancel ExecType = "6"
	ExecTypeRejected      ExecType = "8"
)

// Valid reports whether t is a recognised execution type.
func (t ExecType) Valid() bool {
	switch t {
	case ExecTypeNew, ExecTypePartialFill, ExecTypeFill, ExecTypeDoneForDay,
		ExecTypeCanceled, ExecTypePendingCancel, ExecTypeRejected:
		return true
	default:
		return false
	}
}

// OrdStatus captures the order state carried on reports. Values are FIX tag 39 codes.
type OrdStatus string

const (
	OrdStatusNew             OrdStatus = "0"
	OrdStatusPartiallyFilled OrdStatus = "1"
	OrdStatusFilled          OrdStatus = "2"
	OrdStatusDoneForDay      OrdStatus = "3"
	OrdStatusCanceled        OrdStatus = "4"
	OrdStatusPendingCancel   OrdStatus = "6"
	OrdStatusRejected        OrdStatus = "8"
)

// Valid reports whether s is a recognised order status.
func (s OrdStatus) Valid() bool {
	switch s {
	case OrdStatusNew, OrdStatusPartiallyFilled, OrdStatusFilled, OrdStatusDoneForDay,
		OrdStatusCanceled, OrdStatusPendingCancel, OrdStatusRejected:
		return true
	default:
		return false
	}
}

func (s OrdStatus) String() string {
	switch s {
	case OrdStatusNew:
		return "New"
	case OrdStatusPartiallyFilled:
		return "PartiallyFilled"
	case OrdStatusFilled:
		return "Filled"
	case OrdStatusDoneForDay:
		return "DoneForDay"
	case OrdStatusCanceled:
		return "Canceled"
	case OrdStatusPendingCancel:
		return "PendingCancel"
	case OrdStatusRejected:
		return "Rejected"
	default:
		return "OrdStatus(" + string(s) + ")"
	}
}

// CxlRejResponseTo identifies the request type a cancel reject answers (FIX tag 434).
type CxlRejResponseTo string

const (
	// CxlRejResponseToCancelRequest answers an order cancel request.
	CxlRejResponseToCancelRequest CxlRejResponseTo = "1"
	// CxlRejResponseToCancelReplace answers an order cancel/replace request.
	CxlRejResponseToCancelReplace CxlRejResponseTo = "2"
)

// Valid reports whether r is a recognised response code.
func (r CxlRejResponseTo) Valid() bool {
	return r == CxlRejResponseToCancelRequest || r == CxlRejResponseToCancelReplace
}

// MsgType identifies a message on the session wire (FIX tag 35).
type MsgType string

const (
	MsgTypeNewOrderSingle     MsgType = "D"
	MsgTypeOrderCancelRequest MsgType = "F"
	MsgTypeExecutionReport    MsgType = "8"
	MsgTypeOrderCancelReject  MsgType = "9"
)

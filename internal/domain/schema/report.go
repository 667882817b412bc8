package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Outbound is implemented by every message the executor emits to a session.
type Outbound interface {
	MsgType() MsgType
	// Validate checks the message against the outgoing message schema.
	Validate() error
	outbound()
}

// ExecutionReport describes the current disposition of an order.
type ExecutionReport struct {
	OrderID     string           `json:"orderId"`
	ExecID      string           `json:"execId"`
	ExecType    ExecType         `json:"execType"`
	OrdStatus   OrdStatus        `json:"ordStatus"`
	Side        Side             `json:"side"`
	LeavesQty   decimal.Decimal  `json:"leavesQty"`
	CumQty      decimal.Decimal  `json:"cumQty"`
	AvgPx       decimal.Decimal  `json:"avgPx"`
	ClOrdID     string           `json:"clOrdId"`
	OrigClOrdID string           `json:"origClOrdId,omitempty"`
	Symbol      string           `json:"symbol"`
	Account     string           `json:"account,omitempty"`
	OrderQty    *decimal.Decimal `json:"orderQty,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	LastQty     *decimal.Decimal `json:"lastQty,omitempty"`
	LastPx      *decimal.Decimal `json:"lastPx,omitempty"`
}

func (*ExecutionReport) MsgType() MsgType { return MsgTypeExecutionReport }
func (*ExecutionReport) outbound()        {}

// Validate checks required fields and value domains.
func (r *ExecutionReport) Validate() error {
	if r == nil {
		return errors.New("execution report is nil")
	}
	var problems []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" required")
		}
	}
	require("OrderID", r.OrderID)
	require("ExecID", r.ExecID)
	require("ClOrdID", r.ClOrdID)
	require("Symbol", r.Symbol)
	if !r.ExecType.Valid() {
		problems = append(problems, fmt.Sprintf("ExecType %q invalid", string(r.ExecType)))
	}
	if !r.OrdStatus.Valid() {
		problems = append(problems, fmt.Sprintf("OrdStatus %q invalid", string(r.OrdStatus)))
	}
	if !r.Side.Valid() {
		problems = append(problems, fmt.Sprintf("Side %q invalid", string(r.Side)))
	}
	if r.LeavesQty.IsNegative() {
		problems = append(problems, "LeavesQty negative")
	}
	if r.CumQty.IsNegative() {
		problems = append(problems, "CumQty negative")
	}
	if r.AvgPx.IsNegative() {
		problems = append(problems, "AvgPx negative")
	}
	if r.ExecType == ExecTypePartialFill || r.ExecType == ExecTypeFill {
		if r.LastQty == nil || r.LastPx == nil {
			problems = append(problems, "LastQty and LastPx required on fills")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("execution report: %s", strings.Join(problems, "; "))
	}
	return nil
}

// CancelReject answers a cancel request that will not be honoured.
type CancelReject struct {
	OrderID          string           `json:"orderId"`
	ClOrdID          string           `json:"clOrdId"`
	OrigClOrdID      string           `json:"origClOrdId"`
	OrdStatus        OrdStatus        `json:"ordStatus"`
	CxlRejResponseTo CxlRejResponseTo `json:"cxlRejResponseTo"`
}

func (*CancelReject) MsgType() MsgType { return MsgTypeOrderCancelReject }
func (*CancelReject) outbound()        {}

// Validate checks required fields and value domains.
func (r *CancelReject) Validate() error {
	if r == nil {
		return errors.New("cancel reject is nil")
	}
	var problems []string
	if strings.TrimSpace(r.OrderID) == "" {
		problems = append(problems, "OrderID required")
	}
	if strings.TrimSpace(r.ClOrdID) == "" {
		problems = append(problems, "ClOrdID required")
	}
	if strings.TrimSpace(r.OrigClOrdID) == "" {
		problems = append(problems, "OrigClOrdID required")
	}
	if !r.OrdStatus.Valid() {
		problems = append(problems, fmt.Sprintf("OrdStatus %q invalid", string(r.OrdStatus)))
	}
	if !r.CxlRejResponseTo.Valid() {
		problems = append(problems, fmt.Sprintf("CxlRejResponseTo %q invalid", string(r.CxlRejResponseTo)))
	}
	if len(problems) > 0 {
		return fmt.Errorf("cancel reject: %s", strings.Join(problems, "; "))
	}
	return nil
}

package executor

import (
	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/internal/domain/schema"
)

const (
	// CancelDrawRange is the upper bound of the cancel draw.
	CancelDrawRange = 100
	cancelThreshold = 50
)

// CancelHandler resolves cancel requests into a pending acknowledgement and a terminal answer.
type CancelHandler struct {
	ids    *IDGenerator
	source DrawSource
}

// NewCancelHandler constructs a handler drawing from source.
func NewCancelHandler(ids *IDGenerator, source DrawSource) *CancelHandler {
	return &CancelHandler{ids: ids, source: source}
}

// Canceled reports whether a cancel draw in [1, CancelDrawRange] grants the cancel.
func (h *CancelHandler) Canceled(draw int) bool {
	return draw < cancelThreshold
}

// Handle returns exactly two messages: a PendingCancel report, then either a
// Canceled report or a CancelReject.
func (h *CancelHandler) Handle(req schema.CancelRequest) []schema.Outbound {
	pending := h.report(req, schema.ExecTypePendingCancel, schema.OrdStatusPendingCancel)
	pending.LeavesQty = req.Quantity

	if h.Canceled(h.source.Draw(CancelDrawRange)) {
		canceled := h.report(req, schema.ExecTypeCanceled, schema.OrdStatusCanceled)
		return []schema.Outbound{pending, canceled}
	}

	reject := &schema.CancelReject{
		OrderID:          h.ids.NextOrderID(),
		ClOrdID:          req.ClOrdID,
		OrigClOrdID:      req.OrigClOrdID,
		OrdStatus:        schema.OrdStatusCanceled,
		CxlRejResponseTo: schema.CxlRejResponseToCancelRequest,
	}
	return []schema.Outbound{pending, reject}
}

func (h *CancelHandler) report(req schema.CancelRequest, execType schema.ExecType, status schema.OrdStatus) *schema.ExecutionReport {
	return &schema.ExecutionReport{
		OrderID:     h.ids.NextOrderID(),
		ExecID:      h.ids.NextExecID(),
		ExecType:    execType,
		OrdStatus:   status,
		Side:        req.Side,
		LeavesQty:   decimal.Zero,
		CumQty:      decimal.Zero,
		AvgPx:       decimal.Zero,
		ClOrdID:     req.ClOrdID,
		OrigClOrdID: req.OrigClOrdID,
		Symbol:      req.Symbol,
		Account:     req.Account,
	}
}

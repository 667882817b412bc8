package executor

import (
	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/internal/domain/schema"
)

// ReportBuilder assembles execution reports, stamping each with fresh identifiers.
type ReportBuilder struct {
	ids *IDGenerator
}

// NewReportBuilder returns a builder drawing identifiers from ids.
func NewReportBuilder(ids *IDGenerator) *ReportBuilder {
	return &ReportBuilder{ids: ids}
}

// Build returns the reports for an order in emission order: none for a drop,
// a single reject, or an acknowledgement followed by any fill reports.
func (b *ReportBuilder) Build(order schema.OrderRequest, decision Decision, price decimal.Decimal) []*schema.ExecutionReport {
	switch decision.Outcome {
	case OutcomeDrop:
		return nil
	case OutcomeReject:
		reject := b.base(order, schema.ExecTypeRejected, schema.OrdStatusRejected)
		reject.LeavesQty = order.Quantity
		return []*schema.ExecutionReport{reject}
	case OutcomePartialFill, OutcomeFullFill:
	}

	ack := b.base(order, schema.ExecTypeNew, schema.OrdStatusNew)
	ack.LeavesQty = order.Quantity
	reports := []*schema.ExecutionReport{ack}
	if !decision.Executable {
		return reports
	}

	if decision.Outcome == OutcomePartialFill {
		partial := b.fill(order, schema.ExecTypePartialFill, schema.OrdStatusPartiallyFilled, decision.FilledQty, price)
		return append(reports, partial)
	}

	filled := b.fill(order, schema.ExecTypeFill, schema.OrdStatusFilled, order.Quantity, price)
	reports = append(reports, filled)
	if decision.DoneForDay {
		done := b.fill(order, schema.ExecTypeDoneForDay, schema.OrdStatusDoneForDay, order.Quantity, price)
		reports = append(reports, done)
	}
	return reports
}

func (b *ReportBuilder) base(order schema.OrderRequest, execType schema.ExecType, status schema.OrdStatus) *schema.ExecutionReport {
	qty := order.Quantity
	report := &schema.ExecutionReport{
		OrderID:   b.ids.NextOrderID(),
		ExecID:    b.ids.NextExecID(),
		ExecType:  execType,
		OrdStatus: status,
		Side:      order.Side,
		LeavesQty: decimal.Zero,
		CumQty:    decimal.Zero,
		AvgPx:     decimal.Zero,
		ClOrdID:   order.ClOrdID,
		Symbol:    order.Symbol,
		Account:   order.Account,
		OrderQty:  &qty,
	}
	if limit, ok := order.LimitPrice(); ok && order.IsLimit() {
		report.Price = &limit
	}
	return report
}

func (b *ReportBuilder) fill(order schema.OrderRequest, execType schema.ExecType, status schema.OrdStatus, filled, price decimal.Decimal) *schema.ExecutionReport {
	report := b.base(order, execType, status)
	lastQty := filled
	lastPx := price
	report.CumQty = filled
	report.LeavesQty = order.Quantity.Sub(filled)
	report.AvgPx = price
	report.LastQty = &lastQty
	report.LastPx = &lastPx
	return report
}

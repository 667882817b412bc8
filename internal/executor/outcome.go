package executor

import (
	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/internal/domain/schema"
)

// Outcome is the simulated disposition of a new order.
type Outcome uint8

const (
	OutcomeFullFill Outcome = iota
	OutcomeReject
	OutcomeDrop
	OutcomePartialFill
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReject:
		return "reject"
	case OutcomeDrop:
		return "drop"
	case OutcomePartialFill:
		return "partial_fill"
	default:
		return "full_fill"
	}
}

const (
	// OutcomeDrawRange is the upper bound of the primary draw.
	OutcomeDrawRange = 200
	// DoneForDayDrawRange is the upper bound of the done-for-day draw.
	DoneForDayDrawRange = 100

	rejectDraw          = 1
	dropDraw            = 2
	partialFillFirst    = 3
	partialFillLast     = 51
	doneForDayThreshold = 50
)

var (
	partialFillRatio = decimal.RequireFromString("0.9")
	two              = decimal.NewFromInt(2)
)

// Decision is the selector's verdict for one order.
type Decision struct {
	Outcome    Outcome
	Executable bool
	// FilledQty is set for executable partial and full fills.
	FilledQty  decimal.Decimal
	DoneForDay bool
}

// OutcomeSelector maps draws and order attributes to outcomes.
type OutcomeSelector struct {
	source        DrawSource
	quantityScale int32
}

// NewOutcomeSelector builds a selector drawing from source. Partial fills are
// truncated to quantityScale decimal places.
func NewOutcomeSelector(source DrawSource, quantityScale int32) *OutcomeSelector {
	if quantityScale < 0 {
		quantityScale = 0
	}
	return &OutcomeSelector{source: source, quantityScale: quantityScale}
}

// Select applies the outcome table to a draw in [1, OutcomeDrawRange].
func (s *OutcomeSelector) Select(order schema.OrderRequest, draw int) Outcome {
	switch {
	case draw == rejectDraw:
		return OutcomeReject
	case draw == dropDraw:
		return OutcomeDrop
	case draw >= partialFillFirst && draw <= partialFillLast && partialFillEligible(order.Quantity):
		return OutcomePartialFill
	default:
		return OutcomeFullFill
	}
}

// DoneForDay applies the done-for-day rule to a draw in [1, DoneForDayDrawRange].
func (s *OutcomeSelector) DoneForDay(draw int) bool {
	return draw > doneForDayThreshold
}

// PartialFillQty returns 90% of qty truncated toward zero at the selector's scale.
func (s *OutcomeSelector) PartialFillQty(qty decimal.Decimal) decimal.Decimal {
	return qty.Mul(partialFillRatio).Truncate(s.quantityScale)
}

// Decide draws an outcome for order. The done-for-day draw is taken only for
// executable full fills.
func (s *OutcomeSelector) Decide(order schema.OrderRequest, executable bool) Decision {
	d := Decision{
		Outcome:    s.Select(order, s.source.Draw(OutcomeDrawRange)),
		Executable: executable,
		FilledQty:  decimal.Zero,
		DoneForDay: false,
	}
	if !executable {
		return d
	}
	switch d.Outcome {
	case OutcomePartialFill:
		d.FilledQty = s.PartialFillQty(order.Quantity)
	case OutcomeFullFill:
		d.FilledQty = order.Quantity
		d.DoneForDay = s.DoneForDay(s.source.Draw(DoneForDayDrawRange))
	case OutcomeReject, OutcomeDrop:
	}
	return d
}

func partialFillEligible(qty decimal.Decimal) bool {
	return qty.GreaterThan(decimal.NewFromInt(1)) && qty.Mod(two).IsZero()
}

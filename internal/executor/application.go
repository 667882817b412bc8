// Package executor simulates the counterparty side of order execution: it
// decides how each inbound order or cancel request is answered and emits the
// resulting execution reports.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/marketdata"
	"github.com/coachpo/executor/internal/observability"
)

// Recorder receives execution telemetry.
type Recorder interface {
	RecordOrder(ctx context.Context, order schema.OrderRequest, decision Decision)
	RecordOrderError(ctx context.Context, code errs.Code)
	RecordCancel(ctx context.Context, canceled bool)
	RecordReport(ctx context.Context, msgType schema.MsgType, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordOrder(context.Context, schema.OrderRequest, Decision) {}
func (noopRecorder) RecordOrderError(context.Context, errs.Code)               {}
func (noopRecorder) RecordCancel(context.Context, bool)                        {}
func (noopRecorder) RecordReport(context.Context, schema.MsgType, error)       {}

// Config wires the executor's collaborators.
type Config struct {
	MarketData            marketdata.Provider
	AlwaysFillLimitOrders bool
	// QuantityScale is the number of decimal places partial fills are truncated to.
	QuantityScale int32
	// ValidOrderTypes is reported on session creation but not enforced.
	ValidOrderTypes []schema.OrderType
	Draws           DrawSource
	Recorder        Recorder
	Logger          observability.Logger
}

// Application handles inbound events for any number of sessions.
type Application struct {
	ids             *IDGenerator
	prices          *PriceResolver
	selector        *OutcomeSelector
	builder         *ReportBuilder
	cancels         *CancelHandler
	recorder        Recorder
	logger          observability.Logger
	validOrderTypes []schema.OrderType
}

// New builds an Application. A nil Draws uses a time-seeded RandomSource.
func New(cfg Config) *Application {
	draws := cfg.Draws
	if draws == nil {
		draws = NewRandomSource(uint64(time.Now().UnixNano()))
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.Log()
	}
	validTypes := cfg.ValidOrderTypes
	if len(validTypes) == 0 {
		validTypes = []schema.OrderType{schema.OrderTypeLimit}
	}
	ids := NewIDGenerator()
	return &Application{
		ids:             ids,
		prices:          NewPriceResolver(cfg.MarketData, cfg.AlwaysFillLimitOrders),
		selector:        NewOutcomeSelector(draws, cfg.QuantityScale),
		builder:         NewReportBuilder(ids),
		cancels:         NewCancelHandler(ids, draws),
		recorder:        recorder,
		logger:          logger,
		validOrderTypes: append([]schema.OrderType(nil), validTypes...),
	}
}

// SetMarketDataProvider installs a custom market data provider.
func (a *Application) SetMarketDataProvider(provider marketdata.Provider) {
	a.prices.SetProvider(provider)
}

// ValidOrderTypes returns the configured order type set.
func (a *Application) ValidOrderTypes() []schema.OrderType {
	return append([]schema.OrderType(nil), a.validOrderTypes...)
}

// OnCreate is invoked when a session is established.
func (a *Application) OnCreate(sessionID string) {
	names := make([]string, 0, len(a.validOrderTypes))
	for _, t := range a.validOrderTypes {
		names = append(names, t.String())
	}
	a.logger.Info("session created",
		observability.F("session", sessionID),
		observability.F("valid_order_types", strings.Join(names, ",")))
}

// OnLogon is invoked when a session logs on.
func (a *Application) OnLogon(sessionID string) {
	a.logger.Info("session logon", observability.F("session", sessionID))
}

// OnLogout is invoked when a session logs out.
func (a *Application) OnLogout(sessionID string) {
	a.logger.Info("session logout", observability.F("session", sessionID))
}

// Handle processes a single inbound event and sends its reports to sink.
// Failures are confined to this event: panics are recovered and returned as
// internal errors, and per-report send failures are logged and skipped.
func (a *Application) Handle(ctx context.Context, sessionID string, evt schema.InboundEvent, sink ReportSink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(component, errs.CodeInternal,
				errs.WithMessage(fmt.Sprintf("panic handling %s: %v", evt.Kind, r)),
				errs.WithField("session", sessionID))
			a.logger.Error("event handling failed",
				observability.F("session", sessionID),
				observability.F("kind", evt.Kind.String()),
				observability.F("err", err))
		}
	}()

	switch evt.Kind {
	case schema.InboundNewOrder:
		if evt.Order == nil {
			return errs.New(component, errs.CodeInvalid, errs.WithMessage("new order event without order"))
		}
		return a.HandleOrder(ctx, sessionID, *evt.Order, sink)
	case schema.InboundCancelRequest:
		if evt.Cancel == nil {
			return errs.New(component, errs.CodeInvalid, errs.WithMessage("cancel event without request"))
		}
		a.HandleCancel(ctx, sessionID, *evt.Cancel, sink)
		return nil
	case schema.InboundOther:
	}
	a.logger.Debug("unsupported message type",
		observability.F("session", sessionID),
		observability.F("msg_type", string(evt.MsgType)))
	return errs.New(component, errs.CodeUnsupported,
		errs.WithMessage("unsupported message type"),
		errs.WithField("msgType", string(evt.MsgType)))
}

// HandleOrder prices an order, draws its outcome and emits the resulting reports.
func (a *Application) HandleOrder(ctx context.Context, sessionID string, order schema.OrderRequest, sink ReportSink) error {
	price, err := a.prices.Resolve(order)
	if err != nil {
		a.recorder.RecordOrderError(ctx, errs.CodeOf(err))
		a.logger.Error("order pricing failed",
			observability.F("session", sessionID),
			observability.F("clOrdId", order.ClOrdID),
			observability.F("symbol", order.Symbol),
			observability.F("err", err))
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	decision := a.selector.Decide(order, IsExecutable(order, price))
	a.recorder.RecordOrder(ctx, order, decision)
	a.logger.Info("order outcome selected",
		observability.F("session", sessionID),
		observability.F("clOrdId", order.ClOrdID),
		observability.F("outcome", decision.Outcome.String()),
		observability.F("executable", decision.Executable),
		observability.F("done_for_day", decision.DoneForDay))

	for _, report := range a.builder.Build(order, decision, price) {
		a.emit(ctx, sessionID, sink, report)
	}
	return nil
}

// HandleCancel acknowledges a cancel request and emits its terminal answer.
func (a *Application) HandleCancel(ctx context.Context, sessionID string, req schema.CancelRequest, sink ReportSink) {
	msgs := a.cancels.Handle(req)
	_, rejected := msgs[len(msgs)-1].(*schema.CancelReject)
	a.recorder.RecordCancel(ctx, !rejected)
	a.logger.Info("cancel request resolved",
		observability.F("session", sessionID),
		observability.F("clOrdId", req.ClOrdID),
		observability.F("origClOrdId", req.OrigClOrdID),
		observability.F("canceled", !rejected))
	for _, msg := range msgs {
		a.emit(ctx, sessionID, sink, msg)
	}
}

func (a *Application) emit(ctx context.Context, sessionID string, sink ReportSink, msg schema.Outbound) {
	err := sink.Send(ctx, msg)
	a.recorder.RecordReport(ctx, msg.MsgType(), err)
	if err != nil {
		a.logger.Error("outgoing message dropped",
			observability.F("session", sessionID),
			observability.F("msg_type", string(msg.MsgType())),
			observability.F("err", err))
	}
}

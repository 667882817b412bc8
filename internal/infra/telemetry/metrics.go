package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/executor"
)

// ExecutorMetrics records executor activity as OpenTelemetry counters.
type ExecutorMetrics struct {
	environment string

	orders        metric.Int64Counter
	orderErrors   metric.Int64Counter
	cancels       metric.Int64Counter
	reportsSent   metric.Int64Counter
	reportsFailed metric.Int64Counter
}

var _ executor.Recorder = (*ExecutorMetrics)(nil)

// NewExecutorMetrics creates the executor instruments on meter.
func NewExecutorMetrics(meter metric.Meter) *ExecutorMetrics {
	m := &ExecutorMetrics{environment: Environment()}

	m.orders, _ = meter.Int64Counter("executor_orders",
		metric.WithDescription("Orders processed by the executor, by simulated outcome"),
		metric.WithUnit("{order}"))
	m.orderErrors, _ = meter.Int64Counter("executor_order_errors",
		metric.WithDescription("Orders that failed before any report was built"),
		metric.WithUnit("{order}"))
	m.cancels, _ = meter.Int64Counter("executor_cancels",
		metric.WithDescription("Cancel requests processed, by result"),
		metric.WithUnit("{request}"))
	m.reportsSent, _ = meter.Int64Counter("executor_reports_sent",
		metric.WithDescription("Outgoing messages accepted by the session sink"),
		metric.WithUnit("{message}"))
	m.reportsFailed, _ = meter.Int64Counter("executor_reports_failed",
		metric.WithDescription("Outgoing messages dropped by the session sink"),
		metric.WithUnit("{message}"))
	return m
}

func (m *ExecutorMetrics) RecordOrder(ctx context.Context, order schema.OrderRequest, decision executor.Decision) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Add(ctx, 1, metric.WithAttributes(
		AttrEnvironment.String(m.environment),
		AttrOrderSide.String(order.Side.String()),
		AttrOrderType.String(order.OrderType.String()),
		AttrOutcome.String(decision.Outcome.String()),
		AttrExecutable.String(strconv.FormatBool(decision.Executable)),
	))
}

func (m *ExecutorMetrics) RecordOrderError(ctx context.Context, code errs.Code) {
	if m == nil || m.orderErrors == nil {
		return
	}
	errorType := string(code)
	if errorType == "" {
		errorType = "unknown"
	}
	m.orderErrors.Add(ctx, 1, metric.WithAttributes(
		AttrEnvironment.String(m.environment),
		AttrErrorType.String(errorType),
	))
}

func (m *ExecutorMetrics) RecordCancel(ctx context.Context, canceled bool) {
	if m == nil || m.cancels == nil {
		return
	}
	result := ResultRejected
	if canceled {
		result = ResultCanceled
	}
	m.cancels.Add(ctx, 1, metric.WithAttributes(
		AttrEnvironment.String(m.environment),
		AttrResult.String(result),
	))
}

func (m *ExecutorMetrics) RecordReport(ctx context.Context, msgType schema.MsgType, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(m.environment),
		AttrMessageType.String(string(msgType)),
	}
	if err != nil {
		if m.reportsFailed == nil {
			return
		}
		code := string(errs.CodeOf(err))
		if code == "" {
			code = "unknown"
		}
		m.reportsFailed.Add(ctx, 1, metric.WithAttributes(append(attrs, AttrErrorType.String(code))...))
		return
	}
	if m.reportsSent != nil {
		m.reportsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

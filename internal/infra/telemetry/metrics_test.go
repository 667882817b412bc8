package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/executor"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestExecutorMetricsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m := NewExecutorMetrics(mp.Meter("test"))
	ctx := context.Background()
	order := schema.OrderRequest{Side: schema.SideBuy, OrderType: schema.OrderTypeLimit}

	m.RecordOrder(ctx, order, executor.Decision{Outcome: executor.OutcomeFullFill, Executable: true})
	m.RecordOrder(ctx, order, executor.Decision{Outcome: executor.OutcomeReject})
	m.RecordOrderError(ctx, errs.CodeNoMarketData)
	m.RecordCancel(ctx, true)
	m.RecordCancel(ctx, false)
	m.RecordReport(ctx, schema.MsgTypeExecutionReport, nil)
	m.RecordReport(ctx, schema.MsgTypeExecutionReport, nil)
	m.RecordReport(ctx, schema.MsgTypeOrderCancelReject, errors.New("closed"))

	totals := collectSums(t, reader)
	want := map[string]int64{
		"executor_orders":         2,
		"executor_order_errors":   1,
		"executor_cancels":        2,
		"executor_reports_sent":   2,
		"executor_reports_failed": 1,
	}
	for name, value := range want {
		if totals[name] != value {
			t.Fatalf("%s = %d want %d (all: %v)", name, totals[name], value, totals)
		}
	}
}

func TestNilExecutorMetricsIsSafe(t *testing.T) {
	var m *ExecutorMetrics
	m.RecordOrder(context.Background(), schema.OrderRequest{}, executor.Decision{})
	m.RecordOrderError(context.Background(), "")
	m.RecordCancel(context.Background(), true)
	m.RecordReport(context.Background(), schema.MsgTypeExecutionReport, nil)
}

func TestProviderWithoutEndpointFallsBackToGlobalMeter(t *testing.T) {
	p, err := NewProvider(context.Background(), Options{
		EnableMetrics: true,
		ServiceName:   "executor",
		Environment:   " STAGING ",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.Enabled() {
		t.Fatal("expected disabled provider without endpoint")
	}
	if p.Meter("x") == nil {
		t.Fatal("expected fallback meter")
	}
	if got := Environment(); got != "staging" {
		t.Fatalf("environment = %q want staging", got)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := stripScheme("https://collector:4318"); got != "collector:4318" {
		t.Fatalf("stripScheme = %q", got)
	}
}

func TestProviderExportsWhenEndpointSet(t *testing.T) {
	p, err := NewProvider(context.Background(), Options{
		Endpoint:      "http://127.0.0.1:4318",
		Insecure:      true,
		EnableMetrics: true,
		ServiceName:   "executor",
		Environment:   "dev",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if !p.Enabled() {
		t.Fatal("expected exporting provider")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

// Package telemetry exports executor metrics over OTLP/HTTP.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
)

const defaultExportInterval = 30 * time.Second

var currentEnvironment atomic.Value

// Options selects where executor metrics go. Metrics are exported only when
// EnableMetrics is set and Endpoint is not empty.
type Options struct {
	Endpoint       string
	Insecure       bool
	EnableMetrics  bool
	ServiceName    string
	Environment    string
	ExportInterval time.Duration
}

// Provider owns the SDK meter provider, or nothing when export is off.
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// NewProvider records the environment label and, when export is on, installs
// an OTLP meter provider as the global one.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	env := strings.ToLower(strings.TrimSpace(opts.Environment))
	currentEnvironment.Store(env)

	endpoint := stripScheme(strings.TrimSpace(opts.Endpoint))
	if !opts.EnableMetrics || endpoint == "" {
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			attribute.String(string(AttrEnvironment), env),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	interval := opts.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return &Provider{mp: mp}, nil
}

// Enabled reports whether metrics leave the process.
func (p *Provider) Enabled() bool {
	return p != nil && p.mp != nil
}

// Meter returns a meter from the exporting provider, or the global no-op one.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.Enabled() {
		return otel.Meter(name)
	}
	return p.mp.Meter(name)
}

// Shutdown flushes pending points.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}

func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimPrefix(endpoint, "https://")
}

// Environment is the label attached to every executor metric.
func Environment() string {
	if env, ok := currentEnvironment.Load().(string); ok && env != "" {
		return env
	}
	return "dev"
}

// Command executor launches the simulated order executor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/executor/internal/executor"
	"github.com/coachpo/executor/internal/infra/config"
	"github.com/coachpo/executor/internal/infra/publisher"
	httpserver "github.com/coachpo/executor/internal/infra/server/http"
	"github.com/coachpo/executor/internal/infra/session"
	"github.com/coachpo/executor/internal/infra/telemetry"
	"github.com/coachpo/executor/internal/marketdata"
	"github.com/coachpo/executor/internal/observability"
)

const (
	defaultConfigPath        = "config/app.yaml"
	executorLoggerPrefix     = "executor "
	meterName                = "github.com/coachpo/executor"
	shutdownTimeout          = 30 * time.Second
	serverShutdownTimeout    = 5 * time.Second
	lifecycleShutdownTimeout = 10 * time.Second
	publisherShutdownTimeout = 5 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
	serverReadHeaderTimeout  = 5 * time.Second
)

func main() {
	cfgPathFlag, debug := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newExecutorLogger()
	observability.SetLogger(observability.NewStdLogger(logger, debug))

	configPath := resolveConfigPath(cfgPathFlag)
	appCfg, loadedFromFile, err := config.LoadOrDefault(ctx, configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if !loadedFromFile {
		logger.Printf("configuration file not found, using defaults")
	}
	logger.Printf("configuration initialised: env=%s, alwaysFillLimitOrders=%t, quantityScale=%d",
		appCfg.Environment, appCfg.Executor.AlwaysFillLimitOrders, appCfg.Executor.QuantityScale)

	telemetryProvider, err := initTelemetry(ctx, logger, appCfg.Environment, appCfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}

	market, err := buildMarketData(logger, appCfg)
	if err != nil {
		logger.Fatalf("initialise market data: %v", err)
	}

	validTypes, err := appCfg.Executor.OrderTypes()
	if err != nil {
		logger.Fatalf("resolve valid order types: %v", err)
	}
	app := executor.New(executor.Config{
		MarketData:            market.provider,
		AlwaysFillLimitOrders: appCfg.Executor.AlwaysFillLimitOrders,
		QuantityScale:         appCfg.Executor.QuantityScale,
		ValidOrderTypes:       validTypes,
		Draws:                 nil,
		Recorder:              telemetry.NewExecutorMetrics(telemetryProvider.Meter(meterName)),
		Logger:                observability.Log(),
	})

	reportPublisher, err := buildPublisher(logger, appCfg.Publisher)
	if err != nil {
		logger.Fatalf("initialise publisher: %v", err)
	}
	var copies []executor.ReportSink
	if reportPublisher != nil {
		copies = append(copies, reportPublisher)
	}

	sessions := session.NewServer(app, session.Options{
		MessageRate:  appCfg.Server.MessageRate,
		MessageBurst: appCfg.Server.MessageBurst,
		WriteTimeout: appCfg.Server.WriteTimeout,
		PingInterval: 0,
		Copies:       copies,
		CopyTimeout:  appCfg.Publisher.SendTimeout,
		Logger:       observability.Log(),
	})

	var lifecycle conc.WaitGroup
	if market.feed != nil {
		feed := market.feed
		lifecycle.Go(func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("market data feed: %v", err)
			}
		})
	}

	server := buildServer(appCfg, market, sessions)
	startServer(&lifecycle, logger, server)
	logger.Printf("session server listening on %s", server.Addr)

	logger.Print("executor started; awaiting shutdown signal")
	<-ctx.Done()
	logger.Print("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	err = performGracefulShutdown(shutdownCtx, logger, gracefulShutdownConfig{
		server:     server,
		sessions:   sessions,
		mainCancel: cancel,
		lifecycle:  &lifecycle,
		publisher:  reportPublisher,
		telemetry:  telemetryProvider,
	})
	if err != nil {
		logger.Printf("shutdown completed with errors in %v", time.Since(shutdownStart))
		return
	}
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}

func parseFlags() (string, bool) {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to application configuration file (default: %s)", defaultConfigPath))
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()
	return *cfgPath, *debug
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newExecutorLogger() *log.Logger {
	return log.New(os.Stdout, executorLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

func initTelemetry(ctx context.Context, logger *log.Logger, env config.Environment, cfg config.TelemetryConfig) (*telemetry.Provider, error) {
	telemetryCfg := telemetry.Options{
		Endpoint:      cfg.OTLPEndpoint,
		Insecure:      cfg.OTLPInsecure,
		EnableMetrics: cfg.EnableMetrics,
		ServiceName:   cfg.ServiceName,
		Environment:   string(env),
	}

	provider, err := telemetry.NewProvider(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry provider: %w", err)
	}

	if provider.Enabled() {
		logger.Printf("telemetry initialized: endpoint=%s, service=%s", telemetryCfg.Endpoint, telemetryCfg.ServiceName)
	} else {
		logger.Printf("telemetry disabled")
	}
	return provider, nil
}

type marketData struct {
	provider marketdata.Provider
	cache    *marketdata.QuoteCache
	feed     *marketdata.Feed
	source   string
}

// buildMarketData prefers a streaming feed, then a flat default price. With
// neither, every order fails with no market data.
func buildMarketData(logger *log.Logger, cfg config.AppConfig) (marketData, error) {
	price, hasPrice, err := cfg.Executor.MarketPrice()
	if err != nil {
		return marketData{}, err
	}

	if cfg.MarketData.Enabled() {
		cache := marketdata.NewQuoteCache()
		feed, err := marketdata.NewFeed(marketdata.FeedOptions{
			URL:               cfg.MarketData.FeedURL,
			Symbols:           cfg.MarketData.Symbols,
			MaxReconnectDelay: cfg.MarketData.MaxReconnectDelay,
		}, cache)
		if err != nil {
			return marketData{}, err
		}
		if hasPrice {
			logger.Printf("warning: defaultMarketPrice=%s ignored; quotes come from %s", price, cfg.MarketData.FeedURL)
		}
		logger.Printf("market data feed configured: url=%s, symbols=%s",
			cfg.MarketData.FeedURL, strings.Join(cfg.MarketData.Symbols, ","))
		return marketData{provider: cache, cache: cache, feed: feed, source: httpserver.SourceFeed}, nil
	}

	if hasPrice {
		logger.Printf("flat market data configured: price=%s", price)
		return marketData{provider: marketdata.NewFlatProvider(price), source: httpserver.SourceFlat}, nil
	}

	logger.Printf("warning: no market data configured; orders will be refused")
	return marketData{source: httpserver.SourceNone}, nil
}

func buildPublisher(logger *log.Logger, cfg config.PublisherConfig) (*publisher.Publisher, error) {
	if !cfg.Enabled() {
		logger.Printf("report publisher disabled")
		return nil, nil
	}
	p, err := publisher.New(publisher.Options{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: cfg.BatchTimeout,
		OnError: func(err error) {
			logger.Printf("report publisher: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Printf("report publisher configured: brokers=%s, topic=%s", strings.Join(cfg.Brokers, ","), p.Topic())
	return p, nil
}

func buildServer(cfg config.AppConfig, market marketData, sessions *session.Server) *http.Server {
	handler := httpserver.NewHandler(httpserver.Options{
		Environment:      cfg.Environment,
		Executor:         cfg.Executor,
		MarketDataSource: market.source,
		Quotes:           market.cache,
		Sessions:         sessions,
		Counter:          sessions,
	})
	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}
}

func startServer(lifecycle *conc.WaitGroup, logger *log.Logger, server *http.Server) {
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("session server: %v", err)
		}
	})
}

type gracefulShutdownConfig struct {
	server     *http.Server
	sessions   *session.Server
	mainCancel context.CancelFunc
	lifecycle  *conc.WaitGroup
	publisher  *publisher.Publisher
	telemetry  *telemetry.Provider
}

func performGracefulShutdown(ctx context.Context, logger *log.Logger, cfg gracefulShutdownConfig) error {
	var stepErrs []error
	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		logger.Printf("shutdown: %s...", name)
		if err := fn(stepCtx); err != nil {
			logger.Printf("shutdown: %s failed: %v", name, err)
			stepErrs = append(stepErrs, fmt.Errorf("%s: %w", name, err))
		} else {
			logger.Printf("shutdown: %s completed", name)
		}
	}

	if cfg.sessions != nil {
		shutdownStep("closing sessions", serverShutdownTimeout, func(stepCtx context.Context) error {
			return waitWithContext(stepCtx, cfg.sessions.Close)
		})
	}

	if cfg.server != nil {
		shutdownStep("stopping session server", serverShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.server.Shutdown(stepCtx)
		})
	}

	logger.Print("shutdown: cancelling main context")
	if cfg.mainCancel != nil {
		cfg.mainCancel()
	}

	if cfg.lifecycle != nil {
		shutdownStep("waiting for lifecycle goroutines", lifecycleShutdownTimeout, func(stepCtx context.Context) error {
			return waitWithContext(stepCtx, cfg.lifecycle.Wait)
		})
	}

	if cfg.publisher != nil {
		shutdownStep("closing report publisher", publisherShutdownTimeout, func(stepCtx context.Context) error {
			return waitWithContextErr(stepCtx, cfg.publisher.Close)
		})
	}

	if cfg.telemetry != nil {
		shutdownStep("shutting down telemetry", telemetryShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.telemetry.Shutdown(stepCtx)
		})
	}

	return observability.AggregateErrors("shutdown", stepErrs)
}

func waitWithContext(ctx context.Context, fn func()) error {
	return waitWithContextErr(ctx, func() error {
		fn()
		return nil
	})
}

func waitWithContextErr(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for completion: %w", ctx.Err())
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Clean(defaultConfigPath)
}

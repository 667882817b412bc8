package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/infra/config"
	httpserver "github.com/coachpo/executor/internal/infra/server/http"
)

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(buf, "", 0)
}

func TestBuildMarketDataPrefersFeed(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultAppConfig()
	cfg.Executor.DefaultMarketPrice = "100"
	cfg.MarketData.FeedURL = "ws://localhost:9000/quotes"
	cfg.MarketData.Symbols = []string{"BTC-USD"}

	market, err := buildMarketData(testLogger(&buf), cfg)
	require.NoError(t, err)
	require.Equal(t, httpserver.SourceFeed, market.source)
	require.NotNil(t, market.feed)
	require.NotNil(t, market.cache)
	require.Contains(t, buf.String(), "defaultMarketPrice=100 ignored")

	_, err = market.provider.Ask("BTC-USD")
	require.True(t, errs.HasCode(err, errs.CodeNotFound))
}

func TestBuildMarketDataFlatPrice(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultAppConfig()
	cfg.Executor.DefaultMarketPrice = "42.5"

	market, err := buildMarketData(testLogger(&buf), cfg)
	require.NoError(t, err)
	require.Equal(t, httpserver.SourceFlat, market.source)
	require.Nil(t, market.feed)

	ask, err := market.provider.Ask("ANY")
	require.NoError(t, err)
	require.Equal(t, "42.5", ask.String())
}

func TestBuildMarketDataNone(t *testing.T) {
	var buf bytes.Buffer
	market, err := buildMarketData(testLogger(&buf), config.DefaultAppConfig())
	require.NoError(t, err)
	require.Equal(t, httpserver.SourceNone, market.source)
	require.Nil(t, market.provider)
}

func TestBuildPublisherDisabled(t *testing.T) {
	var buf bytes.Buffer
	p, err := buildPublisher(testLogger(&buf), config.PublisherConfig{})
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestPerformGracefulShutdownAggregatesFailures(t *testing.T) {
	var buf bytes.Buffer
	cancelled := false
	err := performGracefulShutdown(context.Background(), testLogger(&buf), gracefulShutdownConfig{
		mainCancel: func() { cancelled = true },
	})
	require.NoError(t, err)
	require.True(t, cancelled)

	err = waitWithContextErr(context.Background(), func() error { return errors.New("flush failed") })
	require.ErrorContains(t, err, "flush failed")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	block := make(chan struct{})
	defer close(block)
	err = waitWithContext(ctx, func() { <-block })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveConfigPath(t *testing.T) {
	require.Equal(t, "custom.yaml", resolveConfigPath("custom.yaml"))
	require.Equal(t, filepath.Clean(defaultConfigPath), resolveConfigPath(""))
}

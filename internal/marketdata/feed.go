package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/internal/observability"
)

const (
	feedReadLimit            = 1 << 20
	feedWriteTimeout         = 5 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second
)

// FeedOptions configures a websocket quote feed.
type FeedOptions struct {
	URL               string
	Symbols           []string
	MaxReconnectDelay time.Duration
}

// Feed streams quotes from a websocket endpoint into a QuoteCache.
type Feed struct {
	url      string
	symbols  []string
	maxDelay time.Duration
	cache    *QuoteCache
	dial     func(ctx context.Context, url string) (*websocket.Conn, error)
}

type subscribeMessage struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

type quoteMessage struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
}

// NewFeed constructs a feed writing into cache.
func NewFeed(opts FeedOptions, cache *QuoteCache) (*Feed, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("marketdata feed url required")
	}
	if cache == nil {
		return nil, errors.New("marketdata feed requires a quote cache")
	}
	maxDelay := opts.MaxReconnectDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxReconnectDelay
	}
	return &Feed{
		url:      url,
		symbols:  append([]string(nil), opts.Symbols...),
		maxDelay: maxDelay,
		cache:    cache,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.Dial(ctx, url, nil)
			return conn, err
		},
	}, nil
}

// Run keeps a connection alive until ctx is cancelled, reconnecting with exponential backoff.
func (f *Feed) Run(ctx context.Context) error {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = f.maxDelay
	logger := observability.Log()

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		conn, err := f.dial(ctx, f.url)
		if err == nil {
			backoffCfg.Reset()
			logger.Info("market data feed connected", observability.F("url", f.url))
			err = f.session(ctx, conn)
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("market data feed disconnected", observability.F("url", f.url), observability.F("err", err))
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = f.maxDelay
		}
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-time.After(sleep):
		}
	}
}

func (f *Feed) session(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(feedReadLimit)
	if len(f.symbols) > 0 {
		payload, err := json.Marshal(subscribeMessage{Op: "subscribe", Symbols: f.symbols})
		if err != nil {
			return fmt.Errorf("encode subscribe: %w", err)
		}
		writeCtx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
				return context.Canceled
			}
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.MessageText {
			continue
		}
		if err := f.apply(data); err != nil {
			observability.Log().Debug("market data message skipped", observability.F("err", err))
		}
	}
}

// apply decodes a single quote or an array of quotes.
func (f *Feed) apply(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var batch []quoteMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("decode quote batch: %w", err)
		}
		for _, q := range batch {
			f.store(q)
		}
		return nil
	}
	var q quoteMessage
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("decode quote: %w", err)
	}
	if strings.TrimSpace(q.Symbol) == "" {
		return errors.New("quote without symbol")
	}
	f.store(q)
	return nil
}

func (f *Feed) store(q quoteMessage) {
	if strings.TrimSpace(q.Symbol) == "" {
		return
	}
	f.cache.Set(q.Symbol, q.Bid, q.Ask)
}

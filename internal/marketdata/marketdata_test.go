package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/executor/errs"
)

func TestFlatProviderQuotesSamePrice(t *testing.T) {
	p := NewFlatProvider(decimal.RequireFromString("12.5"))
	bid, err := p.Bid("ANY")
	require.NoError(t, err)
	ask, err := p.Ask("OTHER")
	require.NoError(t, err)
	require.True(t, bid.Equal(ask))
	require.Equal(t, "12.5", bid.String())
}

func TestQuoteCacheLookup(t *testing.T) {
	cache := NewQuoteCache()
	cache.Set(" btc-usd ", decimal.RequireFromString("49.00"), decimal.RequireFromString("51.00"))

	ask, err := cache.Ask("BTC-USD")
	require.NoError(t, err)
	require.Equal(t, "51", ask.String())
	bid, err := cache.Bid("btc-usd")
	require.NoError(t, err)
	require.Equal(t, "49", bid.String())

	_, err = cache.Bid("ETH-USD")
	require.Error(t, err)
	require.True(t, errs.HasCode(err, errs.CodeNotFound))
	require.Equal(t, 1, cache.Len())
}

func TestQuoteCacheSnapshotSorted(t *testing.T) {
	cache := NewQuoteCache()
	cache.Set("eth-usd", decimal.NewFromInt(2), decimal.NewFromInt(3))
	cache.Set("btc-usd", decimal.NewFromInt(4), decimal.NewFromInt(5))
	cache.Set("", decimal.NewFromInt(1), decimal.NewFromInt(1))

	snap := cache.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "BTC-USD", snap[0].Symbol)
	require.Equal(t, "ETH-USD", snap[1].Symbol)
}

func TestFeedApplyBatchAndSingle(t *testing.T) {
	cache := NewQuoteCache()
	feed, err := NewFeed(FeedOptions{URL: "ws://unused"}, cache)
	require.NoError(t, err)

	require.NoError(t, feed.apply([]byte(`[{"symbol":"BTC-USD","bid":"1.1","ask":"1.2"},{"symbol":"ETH-USD","bid":2,"ask":3}]`)))
	require.NoError(t, feed.apply([]byte(`{"symbol":"SOL-USD","bid":"4","ask":"5"}`)))
	require.Error(t, feed.apply([]byte(`{"bid":"4"}`)))
	require.Error(t, feed.apply([]byte(`not json`)))

	require.Equal(t, 3, cache.Len())
	ask, err := cache.Ask("ETH-USD")
	require.NoError(t, err)
	require.Equal(t, "3", ask.String())
}

func TestNewFeedRequiresURLAndCache(t *testing.T) {
	_, err := NewFeed(FeedOptions{URL: " "}, NewQuoteCache())
	require.Error(t, err)
	_, err = NewFeed(FeedOptions{URL: "ws://x"}, nil)
	require.Error(t, err)
}

func TestFeedRunStreamsQuotesIntoCache(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		subscribed <- string(data)
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"symbol":"BTC-USD","bid":"49.00","ask":"49.50"}`))
		<-r.Context().Done()
	}))
	defer srv.Close()

	cache := NewQuoteCache()
	feed, err := NewFeed(FeedOptions{
		URL:               "ws" + strings.TrimPrefix(srv.URL, "http"),
		Symbols:           []string{"BTC-USD"},
		MaxReconnectDelay: 50 * time.Millisecond,
	}, cache)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	select {
	case msg := <-subscribed:
		require.Contains(t, msg, `"op":"subscribe"`)
		require.Contains(t, msg, "BTC-USD")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscribe")
	}
	require.Eventually(t, func() bool {
		_, ok := cache.Get("BTC-USD")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	ask, err := cache.Ask("BTC-USD")
	require.NoError(t, err)
	require.True(t, ask.Equal(decimal.RequireFromString("49.50")))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}

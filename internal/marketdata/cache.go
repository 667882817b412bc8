package marketdata

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/errs"
)

// Quote is a top-of-book snapshot for one symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// QuoteCache stores the latest quote per symbol in memory.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]Quote
	clock  func() time.Time
}

// NewQuoteCache constructs an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		mu:     sync.RWMutex{},
		quotes: make(map[string]Quote),
		clock:  time.Now,
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Set records a quote, replacing any previous one for the symbol.
func (c *QuoteCache) Set(symbol string, bid, ask decimal.Decimal) {
	key := normalizeSymbol(symbol)
	if key == "" {
		return
	}
	c.mu.Lock()
	c.quotes[key] = Quote{Symbol: key, Bid: bid, Ask: ask, UpdatedAt: c.clock()}
	c.mu.Unlock()
}

// Get returns the latest quote for symbol.
func (c *QuoteCache) Get(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[normalizeSymbol(symbol)]
	return q, ok
}

// Len reports the number of symbols quoted.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}

// Snapshot returns every cached quote ordered by symbol.
func (c *QuoteCache) Snapshot() []Quote {
	c.mu.RLock()
	out := make([]Quote, 0, len(c.quotes))
	for _, q := range c.quotes {
		out = append(out, q)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (c *QuoteCache) Bid(symbol string) (decimal.Decimal, error) {
	q, ok := c.Get(symbol)
	if !ok {
		return decimal.Zero, missingQuote(symbol)
	}
	return q.Bid, nil
}

func (c *QuoteCache) Ask(symbol string) (decimal.Decimal, error) {
	q, ok := c.Get(symbol)
	if !ok {
		return decimal.Zero, missingQuote(symbol)
	}
	return q.Ask, nil
}

func missingQuote(symbol string) error {
	return errs.New("marketdata", errs.CodeNotFound,
		errs.WithMessage("no quote for symbol"),
		errs.WithField("symbol", symbol))
}

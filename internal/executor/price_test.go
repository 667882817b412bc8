package executor

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/marketdata"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func quotes(symbol, bid, ask string) *marketdata.QuoteCache {
	cache := marketdata.NewQuoteCache()
	cache.Set(symbol, dec(bid), dec(ask))
	return cache
}

func TestResolveLimitWithAlwaysFillIgnoresMarketData(t *testing.T) {
	order := schema.OrderRequest{ClOrdID: "c1", Symbol: "BTC-USD", Side: schema.SideBuy, OrderType: schema.OrderTypeLimit, Quantity: dec("1"), Price: decPtr("50.00")}

	for name, provider := range map[string]marketdata.Provider{
		"no provider":    nil,
		"distant quotes": quotes("BTC-USD", "10", "11"),
	} {
		resolver := NewPriceResolver(provider, true)
		price, err := resolver.Resolve(order)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if !price.Equal(dec("50")) {
			t.Fatalf("%s: price = %s, want limit 50", name, price)
		}
	}
}

func TestResolveUsesAskForBuysAndBidForSells(t *testing.T) {
	resolver := NewPriceResolver(quotes("BTC-USD", "48.00", "49.00"), false)
	tests := []struct {
		side schema.Side
		want string
	}{
		{schema.SideBuy, "49"},
		{schema.SideSell, "48"},
		{schema.SideSellShort, "48"},
	}
	for _, tt := range tests {
		order := schema.OrderRequest{ClOrdID: "c", Symbol: "BTC-USD", Side: tt.side, OrderType: schema.OrderTypeLimit, Quantity: dec("1"), Price: decPtr("50")}
		price, err := resolver.Resolve(order)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.side, err)
		}
		if !price.Equal(dec(tt.want)) {
			t.Fatalf("%s: price = %s want %s", tt.side, price, tt.want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	market := schema.OrderRequest{ClOrdID: "m1", Symbol: "BTC-USD", Side: schema.SideBuy, OrderType: schema.OrderTypeMarket, Quantity: dec("1")}

	_, err := NewPriceResolver(nil, true).Resolve(market)
	if !errs.HasCode(err, errs.CodeNoMarketData) {
		t.Fatalf("expected no_market_data, got %v", err)
	}

	limitNoFlag := market
	limitNoFlag.OrderType = schema.OrderTypeLimit
	limitNoFlag.Price = decPtr("1")
	_, err = NewPriceResolver(nil, false).Resolve(limitNoFlag)
	if !errs.HasCode(err, errs.CodeNoMarketData) {
		t.Fatalf("expected no_market_data for uncovered limit order, got %v", err)
	}

	badSide := market
	badSide.Side = "7"
	_, err = NewPriceResolver(marketdata.NewFlatProvider(dec("1")), false).Resolve(badSide)
	if !errs.HasCode(err, errs.CodeInvalidSide) {
		t.Fatalf("expected invalid_side, got %v", err)
	}

	alwaysFillBadSide := limitNoFlag
	alwaysFillBadSide.Side = "4"
	_, err = NewPriceResolver(nil, true).Resolve(alwaysFillBadSide)
	if !errs.HasCode(err, errs.CodeInvalidSide) {
		t.Fatalf("expected invalid_side before the limit shortcut, got %v", err)
	}

	unknownSymbol := market
	unknownSymbol.Symbol = "ETH-USD"
	_, err = NewPriceResolver(quotes("BTC-USD", "1", "2"), false).Resolve(unknownSymbol)
	if !errs.HasCode(err, errs.CodeNotFound) {
		t.Fatalf("expected not_found for missing quote, got %v", err)
	}
}

func TestSetProviderReplacesMarketData(t *testing.T) {
	resolver := NewPriceResolver(nil, false)
	resolver.SetProvider(marketdata.NewFlatProvider(dec("7.25")))
	price, err := resolver.Resolve(schema.OrderRequest{Symbol: "X", Side: schema.SideSell, OrderType: schema.OrderTypeMarket, Quantity: dec("1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(dec("7.25")) {
		t.Fatalf("price = %s", price)
	}
}

func TestIsExecutable(t *testing.T) {
	limit := func(side schema.Side, px string) schema.OrderRequest {
		return schema.OrderRequest{Side: side, OrderType: schema.OrderTypeLimit, Quantity: dec("1"), Price: decPtr(px)}
	}
	tests := []struct {
		name  string
		order schema.OrderRequest
		price string
		want  bool
	}{
		{"market always", schema.OrderRequest{Side: schema.SideBuy, OrderType: schema.OrderTypeMarket}, "1000000", true},
		{"buy below limit", limit(schema.SideBuy, "50.00"), "49.99", true},
		{"buy at limit", limit(schema.SideBuy, "50.00"), "50", true},
		{"buy above limit", limit(schema.SideBuy, "50.00"), "50.01", false},
		{"sell above limit", limit(schema.SideSell, "50"), "50.01", true},
		{"sell at limit", limit(schema.SideSell, "50.10"), "50.1", true},
		{"sell below limit", limit(schema.SideSell, "50"), "49.99", false},
		{"short below limit", limit(schema.SideSellShort, "0.3"), "0.29999999999", false},
		{"exact decimal edge", limit(schema.SideBuy, "0.3"), "0.30000000000000000001", false},
		{"unknown side", limit("9", "1"), "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExecutable(tt.order, dec(tt.price)); got != tt.want {
				t.Fatalf("IsExecutable = %v want %v", got, tt.want)
			}
		})
	}
}

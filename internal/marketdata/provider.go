// Package marketdata supplies bid/ask prices to the executor.
package marketdata

import (
	"github.com/shopspring/decimal"
)

// Provider looks up current prices by symbol.
type Provider interface {
	Bid(symbol string) (decimal.Decimal, error)
	Ask(symbol string) (decimal.Decimal, error)
}

// FlatProvider quotes the same price for both sides of every symbol.
type FlatProvider struct {
	price decimal.Decimal
}

// NewFlatProvider returns a provider that always quotes price.
func NewFlatProvider(price decimal.Decimal) *FlatProvider {
	return &FlatProvider{price: price}
}

func (p *FlatProvider) Bid(string) (decimal.Decimal, error) { return p.price, nil }
func (p *FlatProvider) Ask(string) (decimal.Decimal, error) { return p.price, nil }

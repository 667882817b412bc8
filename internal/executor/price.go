package executor

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/marketdata"
)

const component = "executor"

// PriceResolver determines the execution price for an order.
type PriceResolver struct {
	mu                    sync.RWMutex
	provider              marketdata.Provider
	alwaysFillLimitOrders bool
}

// NewPriceResolver constructs a resolver. provider may be nil.
func NewPriceResolver(provider marketdata.Provider, alwaysFillLimitOrders bool) *PriceResolver {
	return &PriceResolver{provider: provider, alwaysFillLimitOrders: alwaysFillLimitOrders}
}

// SetProvider replaces the market data provider.
func (r *PriceResolver) SetProvider(provider marketdata.Provider) {
	r.mu.Lock()
	r.provider = provider
	r.mu.Unlock()
}

// Provider returns the configured market data provider, if any.
func (r *PriceResolver) Provider() marketdata.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.provider
}

// Resolve returns the limit price for limit orders when limit orders always fill,
// and otherwise the ask for buys and the bid for sells.
func (r *PriceResolver) Resolve(order schema.OrderRequest) (decimal.Decimal, error) {
	if !order.Side.Valid() {
		return decimal.Zero, errs.New(component, errs.CodeInvalidSide,
			errs.WithMessage("invalid order side"),
			errs.WithField("side", string(order.Side)),
			errs.WithField("clOrdId", order.ClOrdID))
	}
	if order.IsLimit() && r.alwaysFillLimitOrders {
		limit, ok := order.LimitPrice()
		if !ok {
			return decimal.Zero, errs.New(component, errs.CodeInvalid,
				errs.WithMessage("limit order without price"),
				errs.WithField("clOrdId", order.ClOrdID))
		}
		return limit, nil
	}

	provider := r.Provider()
	if provider == nil {
		return decimal.Zero, errs.New(component, errs.CodeNoMarketData,
			errs.WithMessage("no market data provider specified for market order"),
			errs.WithField("clOrdId", order.ClOrdID),
			errs.WithField("symbol", order.Symbol))
	}

	if order.Side.IsSell() {
		return provider.Bid(order.Symbol)
	}
	return provider.Ask(order.Symbol)
}

// IsExecutable reports whether price satisfies the order's limit. Market orders always execute.
func IsExecutable(order schema.OrderRequest, price decimal.Decimal) bool {
	if !order.IsLimit() {
		return true
	}
	limit, ok := order.LimitPrice()
	if !ok {
		return false
	}
	switch {
	case order.Side == schema.SideBuy:
		return price.LessThanOrEqual(limit)
	case order.Side.IsSell():
		return price.GreaterThanOrEqual(limit)
	default:
		return false
	}
}

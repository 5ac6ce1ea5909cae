package domain

import "context"

// Ticker is the most recent trade price reported by an exchange.
type Ticker struct {
	Currency    string
	Price       float64
	RequestTime int64
}

// FilledOrder is one executed order reported by an exchange.
type FilledOrder struct {
	Currency string
	Side     string // "buy" or "sell"
	Price    float64
	Amount   float64
	FilledAt int64
}

// OrderRef identifies a placed order for cancellation.
type OrderRef struct {
	ID       string
	Currency string
	Side     string
}

// MarketClient is the per-exchange market API boundary. The streamer core
// only consumes GetOrderbook and GetBalance; order placement exists on the
// interface for the executor side of the deployment and is never called from
// the decision loop.
type MarketClient interface {
	Name() string
	TakerFee() float64

	GetTicker(ctx context.Context, currency string) (Ticker, error)
	GetOrderbook(ctx context.Context, currency string) (OrderbookSnapshot, error)
	GetFilledOrders(ctx context.Context, currency string, start, end int64) ([]FilledOrder, error)

	// GetBalance returns available balances keyed by lowercase asset symbol
	// ("krw", "btc", ...).
	GetBalance(ctx context.Context) (map[string]float64, error)

	OrderLimitBuy(ctx context.Context, currency string, price, amount float64) (OrderRef, error)
	OrderLimitSell(ctx context.Context, currency string, price, amount float64) (OrderRef, error)
	CancelOrder(ctx context.Context, ref OrderRef) error
}

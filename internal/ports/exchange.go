package ports

import (
	"context"
	"time"

	"trailbot/internal/domain"
)

// OrderResponse represents the essential details returned after placing or
// cancelling an order.
type OrderResponse struct {
	OrderID     string  // Exchange's order ID (opaque)
	Symbol      string  // Symbol for the order
	Price       float64 // Average filled price (0 for unfilled stop orders)
	ExecutedQty float64 // Quantity filled
	Status      string  // Order status (e.g., NEW, FILLED, CANCELED)
	Side        string  // Order side (BUY, SELL)
}

// KlineSource provides historical candle data. The historical loader and
// the volatility estimator consume only this narrow view of the exchange.
type KlineSource interface {
	// GetHistoricalKlines retrieves up to `limit` candles for the given
	// symbol and interval. Zero start/end times mean "most recent".
	GetHistoricalKlines(ctx context.Context, symbol, interval string, limit int, start, end time.Time) ([]*domain.Kline, error)
}

// MarketDataSource extends KlineSource with live price queries.
type MarketDataSource interface {
	KlineSource

	// GetPrice retrieves the last traded price for a given symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// ExchangeGateway defines the full interface for interacting with an
// exchange. This abstraction decouples the core engine from any specific
// exchange implementation; the paper-trading adapter implements it too.
type ExchangeGateway interface {
	MarketDataSource

	// CreateMarketOrder places a market order and returns its fill details.
	CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*OrderResponse, error)

	// CreateStopLossOrder places a stop-limit order at the given stop and
	// limit prices.
	CreateStopLossOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, stopPrice, limitPrice float64) (*OrderResponse, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

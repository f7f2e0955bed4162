// Package papergateway simulates order execution with no real capital at
// risk. Market data is delegated to a real data source; orders fill
// immediately at the last quoted price.
package papergateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"trailbot/internal/domain"
	"trailbot/internal/ports"
)

// Gateway implements ports.ExchangeGateway on top of a real market data
// source, fabricating order IDs and fills locally.
type Gateway struct {
	data   ports.MarketDataSource
	logger ports.Logger

	mu         sync.Mutex
	nextID     int64
	stopOrders map[string]struct{} // open simulated stop orders by ID
}

// New creates a paper-trading gateway over the given market data source.
func New(data ports.MarketDataSource, logger ports.Logger) (*Gateway, error) {
	if data == nil || logger == nil {
		return nil, fmt.Errorf("market data source and logger are required for paper gateway")
	}
	return &Gateway{
		data:       data,
		logger:     logger,
		nextID:     1,
		stopOrders: make(map[string]struct{}),
	}, nil
}

// GetPrice delegates to the real data source.
func (g *Gateway) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return g.data.GetPrice(ctx, symbol)
}

// GetHistoricalKlines delegates to the real data source.
func (g *Gateway) GetHistoricalKlines(ctx context.Context, symbol, interval string, limit int, start, end time.Time) ([]*domain.Kline, error) {
	return g.data.GetHistoricalKlines(ctx, symbol, interval, limit, start, end)
}

// CreateMarketOrder fills immediately at the last quoted price.
func (g *Gateway) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResponse, error) {
	price, err := g.data.GetPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper market order: %w", err)
	}

	g.mu.Lock()
	id := g.allocateID()
	g.mu.Unlock()

	g.logger.Info(ctx, "Paper market order filled", map[string]interface{}{
		"symbol": symbol, "side": side, "quantity": quantity, "price": price, "orderID": id,
	})
	return &ports.OrderResponse{
		OrderID:     id,
		Symbol:      symbol,
		Price:       price,
		ExecutedQty: quantity,
		Status:      "FILLED",
		Side:        string(side),
	}, nil
}

// CreateStopLossOrder records a simulated resting stop order. The stop
// trigger itself is detected by the engine on price refresh, so the order
// only exists to be cancelled or replaced.
func (g *Gateway) CreateStopLossOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, stopPrice, limitPrice float64) (*ports.OrderResponse, error) {
	g.mu.Lock()
	id := g.allocateID()
	g.stopOrders[id] = struct{}{}
	g.mu.Unlock()

	g.logger.Info(ctx, "Paper stop order placed", map[string]interface{}{
		"symbol": symbol, "side": side, "quantity": quantity, "stopPrice": stopPrice, "orderID": id,
	})
	return &ports.OrderResponse{
		OrderID: id,
		Symbol:  symbol,
		Status:  "NEW",
		Side:    string(side),
	}, nil
}

// CancelOrder removes a simulated stop order.
func (g *Gateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.stopOrders[orderID]; !ok {
		return fmt.Errorf("paper cancel %s: %w", orderID, ports.ErrOrderNotFound)
	}
	delete(g.stopOrders, orderID)
	g.logger.Debug(ctx, "Paper order cancelled", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	return nil
}

// allocateID returns the next synthetic order ID. Callers must hold g.mu.
func (g *Gateway) allocateID() string {
	id := strconv.FormatInt(g.nextID, 10)
	g.nextID++
	return id
}

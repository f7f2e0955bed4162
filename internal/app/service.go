package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trailbot/config"
	"trailbot/internal/domain"
	"trailbot/internal/indicators"
	"trailbot/internal/ports"
	"trailbot/internal/trailing"
)

// TradingService orchestrates live and paper trading: it owns the open
// position list and applies the trailing-stop engine on every price
// refresh. The service holds no timers of its own; the runner drives it
// through the RefreshPrices and RefreshVolatility tick entry points, which
// serialize on one mutex so ticks never interleave their effect on the
// position list.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	gateway   ports.ExchangeGateway
	estimator *indicators.Estimator

	mu        sync.Mutex // Protects positions, trades and events
	positions []*domain.Position
	trades    []*domain.ClosedTrade
	events    []domain.Event
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	gateway ports.ExchangeGateway,
	estimator *indicators.Estimator,
) (*TradingService, error) {
	if cfg == nil || logger == nil || gateway == nil || estimator == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.PositionSize <= 0 {
		return nil, fmt.Errorf("%w: PositionSize must be positive", ports.ErrConfiguration)
	}
	return &TradingService{
		cfg:       cfg,
		logger:    logger,
		gateway:   gateway,
		estimator: estimator,
	}, nil
}

// callSiteSettings maps the configured trailing parameters to the engine's
// call-site settings tier.
func (s *TradingService) callSiteSettings() trailing.Settings {
	return trailing.Settings{
		InitialStopDistancePercent: s.cfg.TrailingStop.InitialStopDistancePercent,
		ActivationThresholdPercent: s.cfg.TrailingStop.ActivationThresholdPercent,
		TrailingDistancePercent:    s.cfg.TrailingStop.TrailingDistancePercent,
		ATRMultiplier:              s.cfg.TrailingStop.ATRMultiplier,
		ATRPeriod:                  s.cfg.TrailingStop.ATRPeriod,
	}
}

// atrFor returns the ATR value for the symbol when ATR-based stops are
// enabled, or 0 to keep percentage-based distances.
func (s *TradingService) atrFor(symbol string) float64 {
	if s.cfg.TrailingStop.ATRMultiplier <= 0 {
		return 0
	}
	atr, ok := s.estimator.Value(symbol)
	if !ok {
		return 0
	}
	return atr
}

// OpenPosition enters a long position at market for the configured symbol,
// initializes its trailing stop and places the protective stop order.
func (s *TradingService) OpenPosition(ctx context.Context) (*domain.Position, error) {
	op := "OpenPosition"
	s.mu.Lock()
	defer s.mu.Unlock()

	quantity := s.cfg.PositionSize
	entryOrder, err := s.gateway.CreateMarketOrder(ctx, s.cfg.Symbol, domain.Buy, quantity)
	if err != nil {
		return nil, fmt.Errorf("%s: entry market order failed: %w", op, err)
	}
	entryPrice := entryOrder.Price
	if entryPrice == 0 {
		// Market order response without a fill price; fall back to a quote.
		price, priceErr := s.gateway.GetPrice(ctx, s.cfg.Symbol)
		if priceErr != nil {
			return nil, fmt.Errorf("%s: no fill price and quote failed: %w", op, priceErr)
		}
		s.logger.Warn(ctx, op+": entry order has no fill price, using last quote", map[string]interface{}{
			"orderID": entryOrder.OrderID, "quote": price,
		})
		entryPrice = price
	}

	p := &domain.Position{
		Symbol:       s.cfg.Symbol,
		OpenOrderID:  entryOrder.OrderID,
		EntryPrice:   entryPrice,
		CurrentPrice: entryPrice,
		HighestPrice: entryPrice,
		Quantity:     quantity,
		Status:       domain.StatusOpening,
		OpenDate:     time.Now().UTC(),
	}
	stop := trailing.UpdateStop(p, trailing.Resolve(ptr(s.callSiteSettings()), nil), s.atrFor(p.Symbol))

	stopOrder, err := s.gateway.CreateStopLossOrder(ctx, p.Symbol, domain.Sell, quantity, stop, stop)
	if err != nil {
		// A position without a protective stop is the worst state to be in;
		// flatten immediately and surface the original failure.
		s.logger.Error(ctx, err, op+": failed to place stop loss order, attempting emergency close")
		if _, closeErr := s.gateway.CreateMarketOrder(ctx, p.Symbol, domain.Sell, quantity); closeErr != nil {
			s.logger.Error(ctx, closeErr, op+": EMERGENCY CLOSE FAILED")
		}
		return nil, fmt.Errorf("%s: stop loss order failed after entry: %w", op, err)
	}
	p.StopOrderID = stopOrder.OrderID
	p.Status = domain.StatusActive

	s.positions = append(s.positions, p)
	s.events = append(s.events, domain.Event{
		Type:      domain.EventPositionOpened,
		Symbol:    p.Symbol,
		Time:      p.OpenDate,
		Price:     p.EntryPrice,
		StopPrice: p.CurrentTrailingStop,
	})
	s.logger.Info(ctx, op+": position opened", map[string]interface{}{
		"symbol":     p.Symbol,
		"entryPrice": p.EntryPrice,
		"quantity":   p.Quantity,
		"stopPrice":  p.CurrentTrailingStop,
	})
	return p, nil
}

// RefreshPrices is the price tick entry point. It refreshes the current
// price of every active position, detects stop hits, and runs one batched
// trailing-stop pass; when a stop rises, the stale exchange stop order is
// replaced. The whole tick runs to completion under the service mutex.
func (s *TradingService) RefreshPrices(ctx context.Context) error {
	op := "RefreshPrices"
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.positions {
		if p.Status != domain.StatusActive {
			continue
		}
		price, err := s.gateway.GetPrice(ctx, p.Symbol)
		if err != nil {
			return fmt.Errorf("%s: price fetch for %s: %w", op, p.Symbol, err)
		}
		p.CurrentPrice = price
		if price > p.HighestPrice {
			p.HighestPrice = price
		}
		p.UpdateProfit()

		if p.CurrentTrailingStop > 0 && price <= p.CurrentTrailingStop {
			if _, err := s.closePositionLocked(ctx, p, p.CurrentTrailingStop, domain.CloseReasonStopLoss); err != nil {
				return fmt.Errorf("%s: closing stopped-out position: %w", op, err)
			}
		}
	}

	// Batched ratchet pass over the fully-updated snapshot.
	for _, p := range s.positions {
		if p.Status != domain.StatusActive {
			continue
		}
		previous := p.CurrentTrailingStop
		stop := trailing.UpdateStop(p, trailing.Resolve(ptr(s.callSiteSettings()), p.Trailing), s.atrFor(p.Symbol))
		if previous > 0 && stop > previous {
			if err := s.replaceStopOrder(ctx, p, stop); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			s.events = append(s.events, domain.Event{
				Type:      domain.EventStopRaised,
				Symbol:    p.Symbol,
				Time:      time.Now().UTC(),
				Price:     p.CurrentPrice,
				StopPrice: stop,
			})
		}
	}
	return nil
}

// RefreshVolatility is the volatility tick entry point. A failed or skipped
// refresh never fails the cycle; the previous ATR value stays in force.
func (s *TradingService) RefreshVolatility(ctx context.Context) {
	s.estimator.Refresh(ctx, s.cfg.Symbol)
}

// replaceStopOrder cancels the stale stop order and places one at the new
// level. Cancellation failures are logged and swallowed: the stale order
// may already be gone, and the replacement attempt proceeds regardless.
func (s *TradingService) replaceStopOrder(ctx context.Context, p *domain.Position, stop float64) error {
	op := "replaceStopOrder"
	if p.StopOrderID != "" {
		if err := s.gateway.CancelOrder(ctx, p.Symbol, p.StopOrderID); err != nil {
			if errors.Is(err, ports.ErrOrderNotFound) {
				s.logger.Warn(ctx, op+": stale stop order not found, likely already filled or cancelled", map[string]interface{}{
					"symbol": p.Symbol, "orderID": p.StopOrderID,
				})
			} else {
				s.logger.Warn(ctx, op+": failed to cancel stale stop order, placing replacement anyway", map[string]interface{}{
					"symbol": p.Symbol, "orderID": p.StopOrderID, "error": err.Error(),
				})
			}
		}
	}
	stopOrder, err := s.gateway.CreateStopLossOrder(ctx, p.Symbol, domain.Sell, p.Quantity, stop, stop)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.StopOrderID = stopOrder.OrderID
	s.logger.Info(ctx, op+": stop order replaced", map[string]interface{}{
		"symbol": p.Symbol, "orderID": stopOrder.OrderID, "stopPrice": stop,
	})
	return nil
}

// ClosePosition closes the given position at market with the given reason.
func (s *TradingService) ClosePosition(ctx context.Context, p *domain.Position, reason domain.CloseReason) (*domain.ClosedTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, err := s.gateway.GetPrice(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("ClosePosition: price fetch: %w", err)
	}
	return s.closePositionLocked(ctx, p, price, reason)
}

// closePositionLocked flattens the position on the exchange and finalizes
// the entity. Callers must hold s.mu.
func (s *TradingService) closePositionLocked(ctx context.Context, p *domain.Position, exitPrice float64, reason domain.CloseReason) (*domain.ClosedTrade, error) {
	op := "closePosition"
	if p.Status == domain.StatusClosed {
		return nil, domain.ErrPositionClosed
	}
	p.Status = domain.StatusClosing

	if _, err := s.gateway.CreateMarketOrder(ctx, p.Symbol, domain.Sell, p.Quantity); err != nil {
		p.Status = domain.StatusActive
		return nil, fmt.Errorf("%s: closing market order failed: %w", op, err)
	}
	if p.StopOrderID != "" {
		if err := s.gateway.CancelOrder(ctx, p.Symbol, p.StopOrderID); err != nil {
			s.logger.Warn(ctx, op+": failed to cancel stop order after close", map[string]interface{}{
				"symbol": p.Symbol, "orderID": p.StopOrderID, "error": err.Error(),
			})
		}
		p.StopOrderID = ""
	}

	if err := p.Close(exitPrice, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	trade := domain.TradeFromPosition(p, reason)
	s.trades = append(s.trades, trade)
	s.events = append(s.events, domain.Event{
		Type:      domain.EventPositionClosed,
		Symbol:    p.Symbol,
		Time:      p.CloseDate,
		Price:     exitPrice,
		StopPrice: trade.StopPriceAtClose,
		Trade:     trade,
	})
	s.logger.Info(ctx, op+": position closed", map[string]interface{}{
		"symbol":    p.Symbol,
		"exitPrice": exitPrice,
		"profit":    p.Profit,
		"reason":    reason,
	})
	return trade, nil
}

// Shutdown closes every remaining open position with the shutdown reason.
// Close failures are logged and the remaining positions are still attempted.
func (s *TradingService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.positions {
		if p.Status == domain.StatusClosed {
			continue
		}
		price, err := s.gateway.GetPrice(ctx, p.Symbol)
		if err != nil {
			s.logger.Error(ctx, err, "Shutdown: price fetch failed, position left open", map[string]interface{}{"symbol": p.Symbol})
			continue
		}
		if _, err := s.closePositionLocked(ctx, p, price, domain.CloseReasonShutdown); err != nil {
			s.logger.Error(ctx, err, "Shutdown: failed to close position", map[string]interface{}{"symbol": p.Symbol})
		}
	}
}

// OpenPositions returns the positions that have not been closed yet.
func (s *TradingService) OpenPositions() []*domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := make([]*domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		if p.Status != domain.StatusClosed {
			open = append(open, p)
		}
	}
	return open
}

// ClosedTrades returns the closed-trade snapshots recorded so far.
func (s *TradingService) ClosedTrades() []*domain.ClosedTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ClosedTrade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Events returns the ordered domain event log recorded so far.
func (s *TradingService) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func ptr(s trailing.Settings) *trailing.Settings {
	return &s
}

// Package backtest replays historical candle series against a set of
// positions using the trailing-stop engine.
package backtest

import (
	"context"
	"fmt"
	"time"

	"trailbot/internal/analytics"
	"trailbot/internal/domain"
	"trailbot/internal/history"
	"trailbot/internal/ports"
	"trailbot/internal/trailing"
)

// State tracks the simulator's run lifecycle.
type State string

const (
	StateInitialized State = "INITIALIZED"
	StateLoading     State = "LOADING"
	StateSimulating  State = "SIMULATING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// EntryStrategy decides whether a new position should be opened on the
// current candle. The simulator ships no default rule; entry evaluation is
// a hook for callers.
type EntryStrategy interface {
	// ShouldEnter receives the candles processed so far (current candle
	// last) and the current candle.
	ShouldEnter(ctx context.Context, processed []*domain.Kline, candle *domain.Kline) bool
}

// Config holds the parameters for one backtest run.
type Config struct {
	Symbol         string
	Interval       string
	Start          time.Time
	End            time.Time
	InitialBalance float64
	PositionSize   float64
	Trailing       trailing.Settings // call-site settings for the ratchet
}

// Result holds the outcome of a completed run.
type Result struct {
	InitialBalance float64
	FinalBalance   float64
	Trades         []*domain.ClosedTrade
	Summary        *analytics.Summary
	Events         []domain.Event
}

// Simulator drives the trailing-stop engine deterministically over a
// historical candle series. It exclusively owns its working set of
// positions for the duration of a run.
type Simulator struct {
	cfg    Config
	loader *history.Loader
	logger ports.Logger
	entry  EntryStrategy

	state     State
	positions []*domain.Position
	trades    []*domain.ClosedTrade
	events    []domain.Event
}

// New creates a simulator for one run.
func New(cfg Config, loader *history.Loader, logger ports.Logger) (*Simulator, error) {
	if loader == nil || logger == nil {
		return nil, ports.ErrConfiguration
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, fmt.Errorf("%w: backtest symbol and interval are required", ports.ErrConfiguration)
	}
	return &Simulator{cfg: cfg, loader: loader, logger: logger, state: StateInitialized}, nil
}

// SetEntryStrategy installs the optional entry hook. Must be called before Run.
func (s *Simulator) SetEntryStrategy(entry EntryStrategy) {
	s.entry = entry
}

// SeedPositions hands pre-opened positions to the simulator. The simulator
// takes ownership; callers must not mutate them during the run.
func (s *Simulator) SeedPositions(positions ...*domain.Position) {
	s.positions = append(s.positions, positions...)
}

// State returns the current run state.
func (s *Simulator) State() State {
	return s.state
}

// Run loads the candle series and replays it. Any error aborts the run with
// no partial result.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.state != StateInitialized {
		return nil, fmt.Errorf("simulator already ran (state %s)", s.state)
	}

	s.state = StateLoading
	klines, err := s.loader.Load(ctx, s.cfg.Symbol, s.cfg.Interval, s.cfg.Start, s.cfg.End)
	if err != nil {
		s.state = StateFailed
		return nil, fmt.Errorf("backtest load: %w", err)
	}

	s.state = StateSimulating
	for i, candle := range klines {
		if err := s.processCandle(ctx, klines[:i+1], candle); err != nil {
			s.state = StateFailed
			return nil, fmt.Errorf("backtest candle %s: %w", candle.OpenTime.Format(time.RFC3339), err)
		}
	}
	s.state = StateDone

	finalBalance := s.cfg.InitialBalance
	for _, t := range s.trades {
		finalBalance += t.Profit
	}

	s.logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"symbol":       s.cfg.Symbol,
		"candles":      len(klines),
		"trades":       len(s.trades),
		"finalBalance": finalBalance,
	})

	return &Result{
		InitialBalance: s.cfg.InitialBalance,
		FinalBalance:   finalBalance,
		Trades:         s.trades,
		Summary:        analytics.Summarize(s.trades),
		Events:         s.events,
	}, nil
}

// processCandle applies one candle to the working set, strictly in order:
// price update, stop-trigger check on the candle low, highest-price raise,
// then one batched trailing-stop pass across all still-active positions so
// every ratchet decision sees the same fully-updated snapshot.
func (s *Simulator) processCandle(ctx context.Context, processed []*domain.Kline, candle *domain.Kline) error {
	for _, p := range s.positions {
		if p.Status != domain.StatusActive {
			continue
		}
		p.CurrentPrice = candle.Close
		p.UpdateProfit()

		// Stop trigger uses the candle low, not the close: the stop would
		// have filled intra-candle. A triggered position closes at exactly
		// the stop price and is excluded for the rest of this candle.
		if p.CurrentTrailingStop > 0 && candle.Low <= p.CurrentTrailingStop {
			if err := s.closePosition(p, p.CurrentTrailingStop, domain.CloseReasonStopLoss, candle.CloseTime); err != nil {
				return err
			}
			continue
		}

		if candle.High > p.HighestPrice {
			p.HighestPrice = candle.High
		}
	}

	// Batched ratchet pass.
	for _, p := range s.positions {
		if p.Status != domain.StatusActive {
			continue
		}
		previous := p.CurrentTrailingStop
		stop := trailing.UpdateStop(p, trailing.Resolve(&s.cfg.Trailing, p.Trailing), 0)
		if previous > 0 && stop > previous {
			s.events = append(s.events, domain.Event{
				Type:      domain.EventStopRaised,
				Symbol:    p.Symbol,
				Time:      candle.CloseTime,
				Price:     candle.Close,
				StopPrice: stop,
			})
		}
	}

	if s.entry != nil && s.entry.ShouldEnter(ctx, processed, candle) {
		s.openPosition(candle)
	}
	return nil
}

func (s *Simulator) openPosition(candle *domain.Kline) {
	p := &domain.Position{
		Symbol:       s.cfg.Symbol,
		EntryPrice:   candle.Close,
		CurrentPrice: candle.Close,
		HighestPrice: candle.Close,
		Quantity:     s.cfg.PositionSize,
		Status:       domain.StatusActive,
		OpenDate:     candle.CloseTime,
	}
	trailing.UpdateStop(p, trailing.Resolve(&s.cfg.Trailing, nil), 0)
	s.positions = append(s.positions, p)
	s.events = append(s.events, domain.Event{
		Type:      domain.EventPositionOpened,
		Symbol:    p.Symbol,
		Time:      candle.CloseTime,
		Price:     p.EntryPrice,
		StopPrice: p.CurrentTrailingStop,
	})
}

func (s *Simulator) closePosition(p *domain.Position, price float64, reason domain.CloseReason, at time.Time) error {
	if err := p.Close(price, reason, at); err != nil {
		return err
	}
	trade := domain.TradeFromPosition(p, reason)
	s.trades = append(s.trades, trade)
	s.events = append(s.events, domain.Event{
		Type:      domain.EventPositionClosed,
		Symbol:    p.Symbol,
		Time:      at,
		Price:     price,
		StopPrice: trade.StopPriceAtClose,
		Trade:     trade,
	})
	return nil
}

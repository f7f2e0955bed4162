package indicators

import (
	"context"
	"sync"
	"time"

	"trailbot/internal/ports"
)

// Estimator keeps one ATR value per tracked symbol, refreshed on its own
// cadence from the candle source. Each refresh overwrites the previous
// value; a symbol with insufficient data keeps its last known value.
type Estimator struct {
	source   ports.KlineSource
	logger   ports.Logger
	period   int
	interval string

	mu     sync.RWMutex
	values map[string]float64
}

// EstimatorConfig holds construction parameters for the Estimator.
type EstimatorConfig struct {
	Source   ports.KlineSource
	Logger   ports.Logger
	Period   int    // ATR window; number of true ranges averaged
	Interval string // Candle interval used for the volatility source (e.g., "1h")
}

// NewEstimator creates a volatility estimator.
func NewEstimator(cfg EstimatorConfig) (*Estimator, error) {
	if cfg.Source == nil || cfg.Logger == nil {
		return nil, ports.ErrConfiguration
	}
	period := cfg.Period
	if period <= 0 {
		period = 14
	}
	interval := cfg.Interval
	if interval == "" {
		interval = "1h"
	}
	return &Estimator{
		source:   cfg.Source,
		logger:   cfg.Logger,
		period:   period,
		interval: interval,
		values:   make(map[string]float64),
	}, nil
}

// Refresh recomputes the ATR for each symbol from the most recent period+1
// candles (the extra leading candle anchors the first true range). Symbols
// with fewer than period candles are skipped with a warning; the refresh
// itself never fails the caller's cycle.
func (e *Estimator) Refresh(ctx context.Context, symbols ...string) {
	for _, symbol := range symbols {
		klines, err := e.source.GetHistoricalKlines(ctx, symbol, e.interval, e.period+1, time.Time{}, time.Time{})
		if err != nil {
			e.logger.Warn(ctx, "Volatility refresh failed, keeping previous ATR", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}
		if len(klines) < e.period {
			e.logger.Warn(ctx, "Not enough candles for ATR, skipping symbol this cycle", map[string]interface{}{
				"symbol": symbol,
				"need":   e.period,
				"got":    len(klines),
			})
			continue
		}

		atr, err := ATR(klines)
		if err != nil {
			e.logger.Warn(ctx, "ATR calculation failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			continue
		}

		e.mu.Lock()
		e.values[symbol] = atr
		e.mu.Unlock()
		e.logger.Debug(ctx, "ATR updated", map[string]interface{}{"symbol": symbol, "atr": atr})
	}
}

// Value returns the last computed ATR for the symbol, if any.
func (e *Estimator) Value(symbol string) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	atr, ok := e.values[symbol]
	return atr, ok
}

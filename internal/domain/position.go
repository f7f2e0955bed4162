package domain

import (
	"errors"
	"time"
)

// ErrPositionClosed is returned when an operation is attempted on a position
// that has already transitioned to CLOSED.
var ErrPositionClosed = errors.New("position is already closed")

// TrailingSettings holds per-position overrides for the trailing-stop
// engine. A zero field means "unset" and inherits the caller's or global
// default for that field.
type TrailingSettings struct {
	InitialStopDistancePercent float64
	ActivationThresholdPercent float64
	TrailingDistancePercent    float64
}

// Position represents one open or closed long trade.
type Position struct {
	Symbol      string // Trading symbol (e.g., "ETHUSDT")
	OpenOrderID string // Exchange order ID of the entry order (opaque)
	StopOrderID string // Exchange order ID of the active stop order (opaque)

	EntryPrice   float64 // Price at which the position was entered
	CurrentPrice float64 // Latest observed price (0 until first observation)
	HighestPrice float64 // Highest price observed while the position was open
	Quantity     float64 // Size of the position

	InitialStopPrice    float64 // Stop price set when the position was opened
	CurrentTrailingStop float64 // Current stop level; 0 means not yet set

	Trailing *TrailingSettings // Per-position settings override (nil inherits defaults)

	Status    PositionStatus
	OpenDate  time.Time
	CloseDate time.Time // Set exactly once, on transition to CLOSED

	Profit        float64 // quantity * (currentPrice - entryPrice)
	ProfitPercent float64 // (currentPrice/entryPrice - 1) * 100

	Notes []string // Free-text annotations; still mutable after close
	Tags  []string
}

// IsOpen reports whether the position has not yet been closed.
func (p *Position) IsOpen() bool {
	return p.Status != StatusClosed
}

// UpdateProfit recomputes Profit and ProfitPercent from CurrentPrice.
// It is a no-op while CurrentPrice is unset.
func (p *Position) UpdateProfit() {
	if p.CurrentPrice == 0 {
		return
	}
	p.Profit = p.Quantity * (p.CurrentPrice - p.EntryPrice)
	p.ProfitPercent = (p.CurrentPrice/p.EntryPrice - 1) * 100
}

// SetInitialStop sets both the initial stop price and the current trailing
// stop. Intended as a one-time initializer; calling it again simply
// overwrites both fields with the same value.
func (p *Position) SetInitialStop(price float64) {
	p.InitialStopPrice = price
	p.CurrentTrailingStop = price
}

// Close finalizes the position at the given price. It fails without mutating
// anything if the position is already CLOSED. On success the close date is
// stamped with `at` and the reason is appended to Notes.
func (p *Position) Close(price float64, reason CloseReason, at time.Time) error {
	if p.Status == StatusClosed {
		return ErrPositionClosed
	}
	p.CurrentPrice = price
	p.UpdateProfit()
	p.Status = StatusClosed
	p.CloseDate = at
	p.Notes = append(p.Notes, string(reason))
	return nil
}

package domain

import "time"

// ClosedTrade is an immutable snapshot of a position taken at close time.
type ClosedTrade struct {
	Symbol           string
	EntryPrice       float64
	ExitPrice        float64
	Quantity         float64
	Profit           float64
	ProfitPercent    float64
	OpenDate         time.Time
	CloseDate        time.Time
	HoldingTimeMs    int64
	StopPriceAtClose float64
	Reason           CloseReason
}

// TradeFromPosition snapshots a just-closed position into a ClosedTrade.
func TradeFromPosition(p *Position, reason CloseReason) *ClosedTrade {
	return &ClosedTrade{
		Symbol:           p.Symbol,
		EntryPrice:       p.EntryPrice,
		ExitPrice:        p.CurrentPrice,
		Quantity:         p.Quantity,
		Profit:           p.Profit,
		ProfitPercent:    p.ProfitPercent,
		OpenDate:         p.OpenDate,
		CloseDate:        p.CloseDate,
		HoldingTimeMs:    p.CloseDate.Sub(p.OpenDate).Milliseconds(),
		StopPriceAtClose: p.CurrentTrailingStop,
		Reason:           reason,
	}
}

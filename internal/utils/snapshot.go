package utils

import (
	"time"

	"trailbot/internal/domain"
)

// PositionSnapshot is a flat, JSON-friendly copy of a position's state,
// safe to hand to log sinks or HTTP handlers without exposing the live
// struct the engine is mutating.
type PositionSnapshot struct {
	Symbol              string     `json:"symbol"`
	Status              string     `json:"status"`
	EntryPrice          float64    `json:"entryPrice"`
	CurrentPrice        float64    `json:"currentPrice"`
	HighestPrice        float64    `json:"highestPrice"`
	Quantity            float64    `json:"quantity"`
	InitialStopPrice    float64    `json:"initialStopPrice"`
	CurrentTrailingStop float64    `json:"currentTrailingStop"`
	Profit              float64    `json:"profit"`
	ProfitPercent       float64    `json:"profitPercent"`
	OpenDate            time.Time  `json:"openDate"`
	CloseDate           *time.Time `json:"closeDate,omitempty"`

	InitialStopDistancePercent float64 `json:"initialStopDistancePercent,omitempty"`
	ActivationThresholdPercent float64 `json:"activationThresholdPercent,omitempty"`
	TrailingDistancePercent    float64 `json:"trailingDistancePercent,omitempty"`

	Notes []string `json:"notes,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// SnapshotPosition copies the observable state of a position. Slices and the
// trailing settings are deep-copied.
func SnapshotPosition(p *domain.Position) PositionSnapshot {
	snap := PositionSnapshot{
		Symbol:              p.Symbol,
		Status:              string(p.Status),
		EntryPrice:          p.EntryPrice,
		CurrentPrice:        p.CurrentPrice,
		HighestPrice:        p.HighestPrice,
		Quantity:            p.Quantity,
		InitialStopPrice:    p.InitialStopPrice,
		CurrentTrailingStop: p.CurrentTrailingStop,
		Profit:              p.Profit,
		ProfitPercent:       p.ProfitPercent,
		OpenDate:            p.OpenDate,
	}
	if !p.CloseDate.IsZero() {
		d := p.CloseDate
		snap.CloseDate = &d
	}
	if p.Trailing != nil {
		snap.InitialStopDistancePercent = p.Trailing.InitialStopDistancePercent
		snap.ActivationThresholdPercent = p.Trailing.ActivationThresholdPercent
		snap.TrailingDistancePercent = p.Trailing.TrailingDistancePercent
	}
	if len(p.Notes) > 0 {
		snap.Notes = append([]string(nil), p.Notes...)
	}
	if len(p.Tags) > 0 {
		snap.Tags = append([]string(nil), p.Tags...)
	}
	return snap
}

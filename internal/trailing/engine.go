// Package trailing implements the monotone trailing-stop ratchet: a stop
// price that only ever moves up as the market price rises.
package trailing

import "trailbot/internal/domain"

// UpdateStop runs one ratchet pass for the position with the given effective
// settings and returns the (possibly unchanged) stop price.
//
// The first invocation on a position initializes the stop below the entry
// price; the activation gate does not apply to that call. Afterwards the
// stop is only raised, never lowered, and only once the position's profit
// has cleared the activation threshold. The result is a pure function of
// (highestPrice, currentTrailingStop, profitPercent, settings), so repeated
// calls within the same price observation are idempotent.
//
// When settings.ATRMultiplier is positive and a positive atr value is
// supplied, the stop distance is atr*multiplier in absolute price units
// instead of the percentage-based distance. Pass atr = 0 to keep the
// percentage behavior.
func UpdateStop(p *domain.Position, s Settings, atr float64) float64 {
	// Persist the resolved percentages on the position so later snapshots
	// reflect the settings actually in force. Stored as a fresh copy, never
	// a shared reference.
	p.Trailing = &domain.TrailingSettings{
		InitialStopDistancePercent: s.InitialStopDistancePercent,
		ActivationThresholdPercent: s.ActivationThresholdPercent,
		TrailingDistancePercent:    s.TrailingDistancePercent,
	}

	if p.CurrentTrailingStop == 0 {
		distance := p.EntryPrice * s.InitialStopDistancePercent / 100
		if s.ATRMultiplier > 0 && atr > 0 {
			distance = atr * s.ATRMultiplier
		}
		p.SetInitialStop(p.EntryPrice - distance)
		return p.CurrentTrailingStop
	}

	p.UpdateProfit()
	if p.ProfitPercent < s.ActivationThresholdPercent {
		return p.CurrentTrailingStop
	}

	candidate := p.HighestPrice * (1 - s.TrailingDistancePercent/100)
	if s.ATRMultiplier > 0 && atr > 0 {
		candidate = p.HighestPrice - atr*s.ATRMultiplier
	}
	if candidate > p.CurrentTrailingStop {
		p.CurrentTrailingStop = candidate
	}
	return p.CurrentTrailingStop
}

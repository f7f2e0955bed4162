package trailing

import "trailbot/internal/domain"

// Global defaults applied when neither call-site settings nor a position's
// stored override supply a value.
const (
	DefaultInitialStopDistancePercent = 2.0
	DefaultActivationThresholdPercent = 1.0
	DefaultTrailingDistancePercent    = 1.5
	DefaultATRPeriod                  = 14
)

// Settings is the effective configuration consumed by the ratchet. Zero
// fields in a call-site Settings value mean "unset" and fall through to the
// position override and then the global default.
type Settings struct {
	InitialStopDistancePercent float64
	ActivationThresholdPercent float64
	TrailingDistancePercent    float64

	// ATRMultiplier switches the stop distance from percentage-based to
	// ATR-based when positive and an ATR value is available.
	ATRMultiplier float64
	ATRPeriod     int
}

// Defaults returns the global default settings.
func Defaults() Settings {
	return Settings{
		InitialStopDistancePercent: DefaultInitialStopDistancePercent,
		ActivationThresholdPercent: DefaultActivationThresholdPercent,
		TrailingDistancePercent:    DefaultTrailingDistancePercent,
		ATRPeriod:                  DefaultATRPeriod,
	}
}

// Resolve merges the three settings tiers into one effective Settings value.
// Precedence per field: call-site argument > per-position override > global
// default. Neither input is mutated.
func Resolve(callSite *Settings, perPosition *domain.TrailingSettings) Settings {
	out := Defaults()
	if perPosition != nil {
		if perPosition.InitialStopDistancePercent > 0 {
			out.InitialStopDistancePercent = perPosition.InitialStopDistancePercent
		}
		if perPosition.ActivationThresholdPercent > 0 {
			out.ActivationThresholdPercent = perPosition.ActivationThresholdPercent
		}
		if perPosition.TrailingDistancePercent > 0 {
			out.TrailingDistancePercent = perPosition.TrailingDistancePercent
		}
	}
	if callSite != nil {
		if callSite.InitialStopDistancePercent > 0 {
			out.InitialStopDistancePercent = callSite.InitialStopDistancePercent
		}
		if callSite.ActivationThresholdPercent > 0 {
			out.ActivationThresholdPercent = callSite.ActivationThresholdPercent
		}
		if callSite.TrailingDistancePercent > 0 {
			out.TrailingDistancePercent = callSite.TrailingDistancePercent
		}
		if callSite.ATRMultiplier > 0 {
			out.ATRMultiplier = callSite.ATRMultiplier
		}
		if callSite.ATRPeriod > 0 {
			out.ATRPeriod = callSite.ATRPeriod
		}
	}
	return out
}

package trailing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trailbot/internal/domain"
)

func newActivePosition(entry float64) *domain.Position {
	return &domain.Position{
		Symbol:       "ETHUSDT",
		EntryPrice:   entry,
		CurrentPrice: entry,
		HighestPrice: entry,
		Quantity:     1.0,
		Status:       domain.StatusActive,
	}
}

func TestUpdateStop_InitializesStop(t *testing.T) {
	p := newActivePosition(100.0)
	stop := UpdateStop(p, Defaults(), 0)

	assert.InDelta(t, 98.0, stop, 1e-9)
	assert.InDelta(t, 98.0, p.InitialStopPrice, 1e-9)
	assert.InDelta(t, 98.0, p.CurrentTrailingStop, 1e-9)
}

func TestUpdateStop_ActivationGate(t *testing.T) {
	p := newActivePosition(100.0)
	UpdateStop(p, Defaults(), 0)

	// +0.5% profit is below the 1% activation threshold.
	p.CurrentPrice = 100.5
	p.HighestPrice = 100.5
	stop := UpdateStop(p, Defaults(), 0)
	assert.InDelta(t, 98.0, stop, 1e-9, "stop must not move below the activation threshold")
}

func TestUpdateStop_RatchetSequence(t *testing.T) {
	// Closes 100, 101, 103, 102 with defaults (2% initial, 1% activation,
	// 1.5% trailing distance).
	p := newActivePosition(100.0)

	stop := UpdateStop(p, Defaults(), 0)
	assert.InDelta(t, 98.0, stop, 1e-9)

	p.CurrentPrice = 101.0
	p.HighestPrice = 101.0
	stop = UpdateStop(p, Defaults(), 0)
	assert.InDelta(t, 99.485, stop, 1e-9) // 101 * 0.985

	p.CurrentPrice = 103.0
	p.HighestPrice = 103.0
	stop = UpdateStop(p, Defaults(), 0)
	assert.InDelta(t, 101.455, stop, 1e-9) // 103 * 0.985

	// Pullback: highest price stays 103, candidate 102*0.985 would be lower.
	p.CurrentPrice = 102.0
	stop = UpdateStop(p, Defaults(), 0)
	assert.InDelta(t, 101.455, stop, 1e-9, "stop must never move down")
}

func TestUpdateStop_Idempotent(t *testing.T) {
	p := newActivePosition(100.0)
	UpdateStop(p, Defaults(), 0)

	p.CurrentPrice = 103.0
	p.HighestPrice = 103.0
	first := UpdateStop(p, Defaults(), 0)
	second := UpdateStop(p, Defaults(), 0)
	assert.Equal(t, first, second, "repeated calls within one observation must not move the stop")
}

func TestUpdateStop_ATRDistance(t *testing.T) {
	settings := Defaults()
	settings.ATRMultiplier = 2.0

	p := newActivePosition(100.0)
	stop := UpdateStop(p, settings, 1.5)
	assert.InDelta(t, 97.0, stop, 1e-9, "initial distance should be atr*multiplier") // 100 - 1.5*2

	p.CurrentPrice = 105.0
	p.HighestPrice = 105.0
	stop = UpdateStop(p, settings, 1.5)
	assert.InDelta(t, 102.0, stop, 1e-9) // 105 - 1.5*2

	// Without an ATR value the engine falls back to percentages.
	q := newActivePosition(100.0)
	stop = UpdateStop(q, settings, 0)
	assert.InDelta(t, 98.0, stop, 1e-9)
}

func TestUpdateStop_PersistsResolvedSettings(t *testing.T) {
	p := newActivePosition(100.0)
	UpdateStop(p, Defaults(), 0)

	assert.NotNil(t, p.Trailing)
	assert.InDelta(t, DefaultInitialStopDistancePercent, p.Trailing.InitialStopDistancePercent, 1e-9)
	assert.InDelta(t, DefaultActivationThresholdPercent, p.Trailing.ActivationThresholdPercent, 1e-9)
	assert.InDelta(t, DefaultTrailingDistancePercent, p.Trailing.TrailingDistancePercent, 1e-9)
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		callSite    *Settings
		perPosition *domain.TrailingSettings
		expected    Settings
	}{
		{
			name:     "all unset falls through to defaults",
			expected: Defaults(),
		},
		{
			name:        "per-position override wins over default",
			perPosition: &domain.TrailingSettings{TrailingDistancePercent: 3.0},
			expected: Settings{
				InitialStopDistancePercent: DefaultInitialStopDistancePercent,
				ActivationThresholdPercent: DefaultActivationThresholdPercent,
				TrailingDistancePercent:    3.0,
				ATRPeriod:                  DefaultATRPeriod,
			},
		},
		{
			name:        "call site wins over per-position",
			callSite:    &Settings{TrailingDistancePercent: 5.0},
			perPosition: &domain.TrailingSettings{TrailingDistancePercent: 3.0},
			expected: Settings{
				InitialStopDistancePercent: DefaultInitialStopDistancePercent,
				ActivationThresholdPercent: DefaultActivationThresholdPercent,
				TrailingDistancePercent:    5.0,
				ATRPeriod:                  DefaultATRPeriod,
			},
		},
		{
			name: "unset call-site fields fall through per field",
			callSite: &Settings{
				InitialStopDistancePercent: 4.0,
			},
			perPosition: &domain.TrailingSettings{
				ActivationThresholdPercent: 0.5,
			},
			expected: Settings{
				InitialStopDistancePercent: 4.0,
				ActivationThresholdPercent: 0.5,
				TrailingDistancePercent:    DefaultTrailingDistancePercent,
				ATRPeriod:                  DefaultATRPeriod,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.callSite, tt.perPosition)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	callSite := &Settings{TrailingDistancePercent: 5.0}
	perPosition := &domain.TrailingSettings{TrailingDistancePercent: 3.0}
	Resolve(callSite, perPosition)

	assert.Equal(t, 5.0, callSite.TrailingDistancePercent)
	assert.Equal(t, 0.0, callSite.InitialStopDistancePercent)
	assert.Equal(t, 3.0, perPosition.TrailingDistancePercent)
}

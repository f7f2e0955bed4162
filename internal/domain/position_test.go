package domain

import (
	"testing"
	"time"
)

func TestPosition_UpdateProfit(t *testing.T) {
	tests := []struct {
		name            string
		entryPrice      float64
		currentPrice    float64
		quantity        float64
		expectedProfit  float64
		expectedPercent float64
	}{
		{
			name:            "price above entry",
			entryPrice:      100.0,
			currentPrice:    103.0,
			quantity:        2.0,
			expectedProfit:  6.0,
			expectedPercent: 3.0,
		},
		{
			name:            "price below entry",
			entryPrice:      100.0,
			currentPrice:    98.0,
			quantity:        2.0,
			expectedProfit:  -4.0,
			expectedPercent: -2.0,
		},
		{
			name:            "no price observed yet",
			entryPrice:      100.0,
			currentPrice:    0,
			quantity:        2.0,
			expectedProfit:  0,
			expectedPercent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{
				EntryPrice:   tt.entryPrice,
				CurrentPrice: tt.currentPrice,
				Quantity:     tt.quantity,
				Status:       StatusActive,
			}
			p.UpdateProfit()
			if diff := p.Profit - tt.expectedProfit; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Expected profit %f, got %f", tt.expectedProfit, p.Profit)
			}
			if diff := p.ProfitPercent - tt.expectedPercent; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Expected profit percent %f, got %f", tt.expectedPercent, p.ProfitPercent)
			}
		})
	}
}

func TestPosition_SetInitialStop(t *testing.T) {
	p := &Position{EntryPrice: 100.0, Status: StatusActive}
	p.SetInitialStop(98.0)
	if p.InitialStopPrice != 98.0 {
		t.Errorf("Expected initial stop 98.0, got %f", p.InitialStopPrice)
	}
	if p.CurrentTrailingStop != 98.0 {
		t.Errorf("Expected current trailing stop 98.0, got %f", p.CurrentTrailingStop)
	}
}

func TestPosition_Close(t *testing.T) {
	opened := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(4 * time.Hour)

	p := &Position{
		Symbol:     "ETHUSDT",
		EntryPrice: 100.0,
		Quantity:   2.0,
		Status:     StatusActive,
		OpenDate:   opened,
	}

	if err := p.Close(105.0, CloseReasonStopLoss, closed); err != nil {
		t.Fatalf("Unexpected error on first close: %v", err)
	}
	if p.Status != StatusClosed {
		t.Errorf("Expected status %s, got %s", StatusClosed, p.Status)
	}
	if !p.CloseDate.Equal(closed) {
		t.Errorf("Expected close date %s, got %s", closed, p.CloseDate)
	}
	if p.Profit != 10.0 {
		t.Errorf("Expected profit 10.0, got %f", p.Profit)
	}
	if len(p.Notes) != 1 || p.Notes[0] != string(CloseReasonStopLoss) {
		t.Errorf("Expected close reason note, got %v", p.Notes)
	}
	if p.IsOpen() {
		t.Error("Expected IsOpen to be false after close")
	}

	// Second close must fail without touching anything.
	if err := p.Close(50.0, CloseReasonManual, closed.Add(time.Hour)); err != ErrPositionClosed {
		t.Errorf("Expected ErrPositionClosed, got %v", err)
	}
	if p.CurrentPrice != 105.0 {
		t.Errorf("Failed close mutated CurrentPrice: %f", p.CurrentPrice)
	}
	if !p.CloseDate.Equal(closed) {
		t.Errorf("Failed close mutated CloseDate: %s", p.CloseDate)
	}
}

func TestTradeFromPosition(t *testing.T) {
	opened := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(90 * time.Minute)

	p := &Position{
		Symbol:              "ETHUSDT",
		EntryPrice:          100.0,
		Quantity:            2.0,
		CurrentTrailingStop: 101.455,
		Status:              StatusActive,
		OpenDate:            opened,
	}
	if err := p.Close(101.455, CloseReasonStopLoss, closed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	trade := TradeFromPosition(p, CloseReasonStopLoss)
	if trade.Symbol != "ETHUSDT" {
		t.Errorf("Expected symbol ETHUSDT, got %s", trade.Symbol)
	}
	if trade.ExitPrice != 101.455 {
		t.Errorf("Expected exit price 101.455, got %f", trade.ExitPrice)
	}
	if trade.StopPriceAtClose != 101.455 {
		t.Errorf("Expected stop price at close 101.455, got %f", trade.StopPriceAtClose)
	}
	if trade.HoldingTimeMs != 90*60*1000 {
		t.Errorf("Expected holding time %d ms, got %d", 90*60*1000, trade.HoldingTimeMs)
	}
	if trade.Reason != CloseReasonStopLoss {
		t.Errorf("Expected reason %s, got %s", CloseReasonStopLoss, trade.Reason)
	}
}

// Package analytics reduces closed-trade records into summary metrics.
package analytics

import "trailbot/internal/domain"

// Summary holds the aggregate statistics for a set of closed trades.
type Summary struct {
	TotalTrades   int
	WinningTrades int // profit > 0
	LosingTrades  int // profit <= 0

	TotalProfit        float64
	TotalProfitPercent float64
	BiggestWin         float64 // max profit, 0 if none
	BiggestLoss        float64 // min profit, 0 if none

	AverageProfit        float64
	AverageProfitPercent float64
	WinRate              float64 // winningTrades / totalTrades * 100

	// ProfitFactor is totalWinAmount / totalLossAmount, or totalWinAmount
	// when there are no losses.
	ProfitFactor float64

	AverageHoldingTimeMs    float64
	AverageHoldingTimeHours float64
}

// Summarize reduces the ordered closed-trade list into a Summary. It never
// mutates the trades. An empty input yields the zero-value record.
func Summarize(trades []*domain.ClosedTrade) *Summary {
	s := &Summary{}
	if len(trades) == 0 {
		return s
	}

	var totalWin, totalLoss float64
	var totalHoldingMs int64
	for _, t := range trades {
		s.TotalTrades++
		s.TotalProfit += t.Profit
		s.TotalProfitPercent += t.ProfitPercent
		totalHoldingMs += t.HoldingTimeMs

		if t.Profit > 0 {
			s.WinningTrades++
			totalWin += t.Profit
			if t.Profit > s.BiggestWin {
				s.BiggestWin = t.Profit
			}
		} else {
			s.LosingTrades++
			totalLoss += -t.Profit
			if t.Profit < s.BiggestLoss {
				s.BiggestLoss = t.Profit
			}
		}
	}

	n := float64(s.TotalTrades)
	s.AverageProfit = s.TotalProfit / n
	s.AverageProfitPercent = s.TotalProfitPercent / n
	s.WinRate = float64(s.WinningTrades) / n * 100
	if totalLoss > 0 {
		s.ProfitFactor = totalWin / totalLoss
	} else {
		s.ProfitFactor = totalWin
	}
	s.AverageHoldingTimeMs = float64(totalHoldingMs) / n
	s.AverageHoldingTimeHours = s.AverageHoldingTimeMs / (1000 * 60 * 60)

	return s
}

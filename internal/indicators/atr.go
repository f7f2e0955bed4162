// Package indicators provides the volatility figures consumed by the
// trailing-stop engine.
package indicators

import (
	"fmt"
	"math"

	"trailbot/internal/domain"
)

// ATR computes the Average True Range over the given candles as a simple
// arithmetic mean of the true ranges. The first candle only anchors the
// previous close for the first true range, so len(klines) candles yield
// len(klines)-1 true ranges.
func ATR(klines []*domain.Kline) (float64, error) {
	if len(klines) < 2 {
		return 0, fmt.Errorf("not enough data points for ATR calculation: need at least 2, got %d", len(klines))
	}

	var sum float64
	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		sum += tr
	}

	return sum / float64(len(klines)-1), nil
}

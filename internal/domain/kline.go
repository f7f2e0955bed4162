package domain

import "time"

// Kline represents a single candlestick data point. The fields mirror the
// positional 12-field kline records returned by exchange REST APIs (the
// trailing "ignored" field is not kept).
type Kline struct {
	OpenTime       time.Time // Start time of the interval
	CloseTime      time.Time // End time of the interval
	Symbol         string    // Trading symbol
	Interval       string    // Kline interval (e.g., "1m", "1h")
	Open           float64   // Opening price
	High           float64   // Highest price
	Low            float64   // Lowest price
	Close          float64   // Closing price
	Volume         float64   // Base asset volume
	QuoteVolume    float64   // Quote asset volume
	TradeCount     int64     // Number of trades in the interval
	BuyBaseVolume  float64   // Taker buy base asset volume
	BuyQuoteVolume float64   // Taker buy quote asset volume
}

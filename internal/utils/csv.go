package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"trailbot/internal/domain"
)

func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"open_time", "close_time", "symbol", "interval",
		"open", "high", "low", "close",
		"volume", "quote_volume", "trade_count", "buy_base_volume", "buy_quote_volume",
	})

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
			strconv.FormatFloat(k.QuoteVolume, 'f', -1, 64),
			strconv.FormatInt(k.TradeCount, 10),
			strconv.FormatFloat(k.BuyBaseVolume, 'f', -1, 64),
			strconv.FormatFloat(k.BuyQuoteVolume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadKlinesFromCSV reads candles previously written by WriteKlinesToCSV.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	klines := make([]*domain.Kline, 0, len(records)-1)
	for _, rec := range records[1:] { // Skip header
		if len(rec) < 13 {
			return nil, fmt.Errorf("malformed kline row: expected 13 fields, got %d", len(rec))
		}
		openTime, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("parsing open_time %q: %w", rec[0], err)
		}
		closeTime, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("parsing close_time %q: %w", rec[1], err)
		}
		floats := make([]float64, 8)
		for i, idx := range []int{4, 5, 6, 7, 8, 9, 11, 12} {
			floats[i], err = strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing field %d %q: %w", idx, rec[idx], err)
			}
		}
		tradeCount, err := strconv.ParseInt(rec[10], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing trade_count %q: %w", rec[10], err)
		}
		klines = append(klines, &domain.Kline{
			OpenTime:       openTime,
			CloseTime:      closeTime,
			Symbol:         rec[2],
			Interval:       rec[3],
			Open:           floats[0],
			High:           floats[1],
			Low:            floats[2],
			Close:          floats[3],
			Volume:         floats[4],
			QuoteVolume:    floats[5],
			TradeCount:     tradeCount,
			BuyBaseVolume:  floats[6],
			BuyQuoteVolume: floats[7],
		})
	}
	return klines, nil
}

func WriteTradesToCSV(trades []*domain.ClosedTrade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"symbol", "open_date", "close_date",
		"entry_price", "exit_price", "quantity",
		"profit", "profit_percent", "holding_time_ms", "stop_price_at_close", "reason",
	})

	for _, t := range trades {
		writer.Write([]string{
			t.Symbol,
			t.OpenDate.Format(time.RFC3339),
			t.CloseDate.Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.Profit, 'f', -1, 64),
			strconv.FormatFloat(t.ProfitPercent, 'f', -1, 64),
			strconv.FormatInt(t.HoldingTimeMs, 10),
			strconv.FormatFloat(t.StopPriceAtClose, 'f', -1, 64),
			string(t.Reason),
		})
	}
	return writer.Error()
}

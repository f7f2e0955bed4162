package main

import (
	"context"
	"fmt"
	"log"

	"trailbot/config"
	"trailbot/internal/adapters/binanceclient"
	"trailbot/internal/adapters/logger"
	"trailbot/internal/backtest"
	"trailbot/internal/domain"
	"trailbot/internal/history"
	"trailbot/internal/trailing"
	"trailbot/internal/utils"
)

// enterOnce opens a single position on the first candle and then stays out.
// It benchmarks the trailing stop itself: buy once, ride the ratchet until
// it stops out or the series ends.
type enterOnce struct {
	entered bool
}

func (e *enterOnce) ShouldEnter(ctx context.Context, processed []*domain.Kline, candle *domain.Kline) bool {
	if e.entered {
		return false
	}
	e.entered = true
	return true
}

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.Backtest.StartDate.IsZero() || cfg.Backtest.EndDate.IsZero() {
		log.Fatalf("FATAL: BACKTEST_START_DATE and BACKTEST_END_DATE must be set")
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 2. Initialize the data source and candle loader
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	loader, err := history.New(history.Config{Source: binanceClient, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize candle loader: %v", err)
	}

	// 3. Sweep trailing distances around the configured value
	distances := []float64{
		cfg.TrailingStop.TrailingDistancePercent * 0.5,
		cfg.TrailingStop.TrailingDistancePercent,
		cfg.TrailingStop.TrailingDistancePercent * 2,
	}

	ctx := context.Background()
	for _, distance := range distances {
		settings := trailing.Settings{
			InitialStopDistancePercent: cfg.TrailingStop.InitialStopDistancePercent,
			ActivationThresholdPercent: cfg.TrailingStop.ActivationThresholdPercent,
			TrailingDistancePercent:    distance,
			ATRMultiplier:              cfg.TrailingStop.ATRMultiplier,
			ATRPeriod:                  cfg.TrailingStop.ATRPeriod,
		}

		sim, err := backtest.New(backtest.Config{
			Symbol:         cfg.Backtest.Symbol,
			Interval:       cfg.Backtest.Interval,
			Start:          cfg.Backtest.StartDate,
			End:            cfg.Backtest.EndDate,
			InitialBalance: cfg.Backtest.InitialBalance,
			PositionSize:   cfg.PositionSize,
			Trailing:       settings,
		}, loader, appLogger)
		if err != nil {
			log.Fatalf("FATAL: Failed to create simulator: %v", err)
		}
		sim.SetEntryStrategy(&enterOnce{})

		result, err := sim.Run(ctx)
		if err != nil {
			appLogger.Error(ctx, err, "Backtest failed", map[string]interface{}{"trailingDistance": distance})
			continue
		}

		appLogger.Info(ctx, "Backtest result", map[string]interface{}{
			"trailingDistance": distance,
			"trades":           result.Summary.TotalTrades,
			"winRate":          result.Summary.WinRate,
			"totalProfit":      result.Summary.TotalProfit,
			"profitFactor":     result.Summary.ProfitFactor,
			"biggestWin":       result.Summary.BiggestWin,
			"biggestLoss":      result.Summary.BiggestLoss,
			"finalBalance":     result.FinalBalance,
		})

		tradesFile := fmt.Sprintf("data/backtest_trades_%s_dist%.2f.csv", cfg.Backtest.Symbol, distance)
		if err := utils.WriteTradesToCSV(result.Trades, tradesFile); err != nil {
			appLogger.Error(ctx, err, "Error writing trades CSV")
			continue
		}
		appLogger.Info(ctx, "Trades saved to", map[string]interface{}{"filename": tradesFile})
	}
}

package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"trailbot/config"
	"trailbot/internal/adapters/binanceclient"
	"trailbot/internal/adapters/logger"
	"trailbot/internal/adapters/papergateway"
	"trailbot/internal/app"
	"trailbot/internal/indicators"
	"trailbot/internal/ports"
	"trailbot/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel.String())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 4. Select the gateway for the configured trading mode. Paper trading
	// still quotes real prices through the Binance client.
	var gateway ports.ExchangeGateway = binanceClient
	if cfg.TradingMode == config.ModePaper {
		gateway, err = papergateway.New(binanceClient, appLogger)
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize paper gateway")
			log.Fatalf("FATAL: Failed to initialize paper gateway: %v", err)
		}
	}
	appLogger.Info(context.Background(), "Exchange gateway initialized", map[string]interface{}{"mode": cfg.TradingMode})

	// 5. Initialize Volatility Estimator
	estimator, err := indicators.NewEstimator(indicators.EstimatorConfig{
		Source: binanceClient,
		Logger: appLogger,
		Period: cfg.TrailingStop.ATRPeriod,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize volatility estimator")
		log.Fatalf("FATAL: Failed to initialize volatility estimator: %v", err)
	}

	// 6. Initialize Application Service
	tradingService, err := app.NewTradingService(cfg, appLogger, gateway, estimator)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Drive the service. The service exposes tick entry points and holds
	// no timers of its own; the tickers live here.
	tradingService.RefreshVolatility(ctx)
	if _, err := tradingService.OpenPosition(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to open initial position")
		log.Fatalf("FATAL: Failed to open initial position: %v", err)
	}

	var priceTick, volatilityTick <-chan time.Time
	if cfg.RefreshInterval > 0 {
		t := time.NewTicker(cfg.RefreshInterval)
		defer t.Stop()
		priceTick = t.C
	}
	if cfg.VolatilityUpdateInterval > 0 {
		t := time.NewTicker(cfg.VolatilityUpdateInterval)
		defer t.Stop()
		volatilityTick = t.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

run:
	for {
		select {
		case <-priceTick:
			if err := tradingService.RefreshPrices(ctx); err != nil {
				appLogger.Error(ctx, err, "Price refresh failed")
			}
			if len(tradingService.OpenPositions()) == 0 {
				appLogger.Info(ctx, "All positions closed, exiting")
				break run
			}
		case <-volatilityTick:
			tradingService.RefreshVolatility(ctx)
		case sig := <-sigCh:
			appLogger.Info(ctx, "Signal received, shutting down", map[string]interface{}{"signal": sig.String()})
			break run
		}
	}

	// Closing on shutdown uses a fresh context so a cancelled run context
	// cannot strand an open position.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	for _, p := range tradingService.OpenPositions() {
		appLogger.Info(shutdownCtx, "Closing position on shutdown", map[string]interface{}{
			"position": utils.SnapshotPosition(p),
		})
	}
	tradingService.Shutdown(shutdownCtx)

	appLogger.Info(context.Background(), "Application finished gracefully.", map[string]interface{}{
		"closedTrades": len(tradingService.ClosedTrades()),
	})
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trailbot/internal/adapters/logger" // Import the logger package for LogLevel
	"trailbot/internal/ports"
	"trailbot/internal/trailing"
)

// Trading modes.
const (
	ModeLive  = "live"
	ModePaper = "paper"
)

// TrailingStopConfig holds the global-default tier of the trailing-stop
// settings resolution.
type TrailingStopConfig struct {
	InitialStopDistancePercent float64
	ActivationThresholdPercent float64
	TrailingDistancePercent    float64
	ATRMultiplier              float64 // 0 disables ATR-based stop distances
	ATRPeriod                  int
}

// BacktestParams holds the parameters consumed by the backtest runner.
type BacktestParams struct {
	Symbol         string
	Interval       string
	StartDate      time.Time
	EndDate        time.Time
	InitialBalance float64
}

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	TradingMode  string  // "live" or "paper"
	Symbol       string  // Trading symbol (e.g., "ETHUSDT")
	PositionSize float64 // Quantity per position

	TrailingStop TrailingStopConfig

	// Tick intervals. Zero disables the corresponding ticker.
	RefreshInterval          time.Duration
	VolatilityUpdateInterval time.Duration

	Backtest BacktestParams

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Trading Parameters. Mode, symbol and position size have no defaults:
	// an operator must state them explicitly.
	cfg.TradingMode = strings.ToLower(getEnv("TRADING_MODE", ""))
	switch cfg.TradingMode {
	case ModeLive, ModePaper:
	case "":
		errs = append(errs, "TRADING_MODE must be set (live or paper)")
	default:
		errs = append(errs, fmt.Sprintf("invalid TRADING_MODE %q (expected live or paper)", cfg.TradingMode))
	}

	if cfg.TradingMode == ModeLive {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set for live trading")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set for live trading")
		}
	}

	cfg.Symbol = getEnv("SYMBOL", "")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.PositionSize, err = getEnvAsFloatRequired("POSITION_SIZE", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POSITION_SIZE: %v", err))
	} else if cfg.PositionSize <= 0 {
		errs = append(errs, "POSITION_SIZE must be set and positive")
	}

	// Trailing stop parameters (using defaults if not set)
	cfg.TrailingStop.InitialStopDistancePercent = getEnvAsFloat("TRAILING_INITIAL_STOP_PERCENT", trailing.DefaultInitialStopDistancePercent)
	cfg.TrailingStop.ActivationThresholdPercent = getEnvAsFloat("TRAILING_ACTIVATION_PERCENT", trailing.DefaultActivationThresholdPercent)
	cfg.TrailingStop.TrailingDistancePercent = getEnvAsFloat("TRAILING_DISTANCE_PERCENT", trailing.DefaultTrailingDistancePercent)
	cfg.TrailingStop.ATRMultiplier = getEnvAsFloat("ATR_MULTIPLIER", 0)
	cfg.TrailingStop.ATRPeriod = getEnvAsInt("ATR_PERIOD", trailing.DefaultATRPeriod)

	if cfg.TrailingStop.InitialStopDistancePercent <= 0 || cfg.TrailingStop.InitialStopDistancePercent >= 100 {
		errs = append(errs, "TRAILING_INITIAL_STOP_PERCENT must be between 0 and 100 (exclusive)")
	}
	if cfg.TrailingStop.ActivationThresholdPercent < 0 {
		errs = append(errs, "TRAILING_ACTIVATION_PERCENT cannot be negative")
	}
	if cfg.TrailingStop.TrailingDistancePercent <= 0 || cfg.TrailingStop.TrailingDistancePercent >= 100 {
		errs = append(errs, "TRAILING_DISTANCE_PERCENT must be between 0 and 100 (exclusive)")
	}
	if cfg.TrailingStop.ATRMultiplier < 0 {
		errs = append(errs, "ATR_MULTIPLIER cannot be negative")
	}
	if cfg.TrailingStop.ATRPeriod < 2 {
		errs = append(errs, "ATR_PERIOD must be at least 2")
	}

	// Tick intervals
	refreshMs := getEnvAsInt("REFRESH_INTERVAL_MS", 5000)
	if refreshMs < 0 {
		errs = append(errs, "REFRESH_INTERVAL_MS cannot be negative")
	}
	cfg.RefreshInterval = time.Duration(refreshMs) * time.Millisecond

	volatilityMs := getEnvAsInt("VOLATILITY_UPDATE_INTERVAL_MS", 60000)
	if volatilityMs < 0 {
		errs = append(errs, "VOLATILITY_UPDATE_INTERVAL_MS cannot be negative")
	}
	cfg.VolatilityUpdateInterval = time.Duration(volatilityMs) * time.Millisecond

	// Backtest parameters (only validated when set; the live runner never
	// reads them)
	cfg.Backtest.Symbol = getEnv("BACKTEST_SYMBOL", cfg.Symbol)
	cfg.Backtest.Interval = getEnv("BACKTEST_INTERVAL", "1h")
	cfg.Backtest.InitialBalance = getEnvAsFloat("BACKTEST_INITIAL_BALANCE", 10000.0)

	if startStr := getEnv("BACKTEST_START_DATE", ""); startStr != "" {
		cfg.Backtest.StartDate, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid BACKTEST_START_DATE %q (expected YYYY-MM-DD)", startStr))
		}
	}
	if endStr := getEnv("BACKTEST_END_DATE", ""); endStr != "" {
		cfg.Backtest.EndDate, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid BACKTEST_END_DATE %q (expected YYYY-MM-DD)", endStr))
		}
	}
	if !cfg.Backtest.StartDate.IsZero() && !cfg.Backtest.EndDate.IsZero() && !cfg.Backtest.StartDate.Before(cfg.Backtest.EndDate) {
		errs = append(errs, "BACKTEST_START_DATE must be before BACKTEST_END_DATE")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrConfiguration, strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

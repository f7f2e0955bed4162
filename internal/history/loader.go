// Package history fetches, deduplicates, and orders candle series for
// backtesting.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trailbot/internal/domain"
	"trailbot/internal/ports"
)

const (
	// pageSize is the maximum number of candles requested per page.
	pageSize = 1000
	// defaultPageDelay paces consecutive page requests to stay inside the
	// exchange's rate limits.
	defaultPageDelay = 250 * time.Millisecond
)

// Loader produces a gapless, duplicate-free, strictly time-ascending candle
// sequence for a symbol/interval/date range.
type Loader struct {
	source    ports.KlineSource
	logger    ports.Logger
	pageDelay time.Duration
}

// Config holds construction parameters for the Loader.
type Config struct {
	Source ports.KlineSource
	Logger ports.Logger
	// PageDelay overrides the pacing delay between page requests.
	// Negative disables the delay (used by tests); zero keeps the default.
	PageDelay time.Duration
}

// New creates a historical data loader.
func New(cfg Config) (*Loader, error) {
	if cfg.Source == nil || cfg.Logger == nil {
		return nil, ports.ErrConfiguration
	}
	delay := cfg.PageDelay
	if delay == 0 {
		delay = defaultPageDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Loader{source: cfg.Source, logger: cfg.Logger, pageDelay: delay}, nil
}

// IntervalStep converts an interval string like "15m", "1h", "1d" or "1w"
// into the duration of one candle. Unknown units fail with
// ports.ErrUnsupportedInterval.
func IntervalStep(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("%w: %q", ports.ErrUnsupportedInterval, interval)
	}
	var value int
	if _, err := fmt.Sscanf(interval[:len(interval)-1], "%d", &value); err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: %q", ports.ErrUnsupportedInterval, interval)
	}
	var unit time.Duration
	switch interval[len(interval)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: %q", ports.ErrUnsupportedInterval, interval)
	}
	return time.Duration(value) * unit, nil
}

// Load fetches all candles covering [start, end] in pages, then filters to
// the requested range, removes duplicate open times (first occurrence wins)
// and sorts ascending. An empty final sequence fails with
// ports.ErrDataUnavailable.
func (l *Loader) Load(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "Load"
	step, err := IntervalStep(interval)
	if err != nil {
		return nil, err
	}

	var accumulated []*domain.Kline
	current := start
	for !current.After(end) {
		reqEnd := current.Add(time.Duration(pageSize-1) * step)
		if reqEnd.After(end) {
			reqEnd = end
		}

		page, err := l.source.GetHistoricalKlines(ctx, symbol, interval, pageSize, current, reqEnd)
		if err != nil {
			return nil, fmt.Errorf("%s: fetching page starting %s: %w", op, current.Format(time.RFC3339), err)
		}
		if len(page) == 0 {
			// No more data, or a gap in the series.
			break
		}
		accumulated = append(accumulated, page...)
		current = page[len(page)-1].OpenTime.Add(step)

		l.logger.Debug(ctx, op+": page loaded", map[string]interface{}{
			"symbol":    symbol,
			"interval":  interval,
			"count":     len(page),
			"nextStart": current,
		})

		if l.pageDelay > 0 && !current.After(end) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrContextCanceled, ctx.Err())
			case <-time.After(l.pageDelay):
			}
		}
	}

	// Filter to the requested window, then dedupe keeping the first
	// occurrence of each open time.
	seen := make(map[int64]struct{}, len(accumulated))
	klines := make([]*domain.Kline, 0, len(accumulated))
	for _, k := range accumulated {
		if k.OpenTime.Before(start) || k.CloseTime.After(end) {
			continue
		}
		key := k.OpenTime.UnixMilli()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		klines = append(klines, k)
	}
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].OpenTime.Before(klines[j].OpenTime)
	})

	if len(klines) == 0 {
		return nil, fmt.Errorf("%s: %s %s [%s, %s]: %w", op, symbol, interval,
			start.Format(time.RFC3339), end.Format(time.RFC3339), ports.ErrDataUnavailable)
	}

	l.logger.Info(ctx, op+": candle series ready", map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(klines),
		"first":    klines[0].OpenTime,
		"last":     klines[len(klines)-1].OpenTime,
	})
	return klines, nil
}

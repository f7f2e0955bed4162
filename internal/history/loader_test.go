package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailbot/internal/domain"
	"trailbot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// pagedSource returns one prepared page per call, in order.
type pagedSource struct {
	pages [][]*domain.Kline
	calls int
	err   error
}

func (m *pagedSource) GetHistoricalKlines(ctx context.Context, symbol, interval string, limit int, start, end time.Time) ([]*domain.Kline, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.pages) {
		return nil, nil
	}
	page := m.pages[m.calls]
	m.calls++
	return page, nil
}

func hourKline(openTime time.Time, close float64) *domain.Kline {
	return &domain.Kline{
		OpenTime:  openTime,
		CloseTime: openTime.Add(time.Hour - time.Millisecond),
		Symbol:    "ETHUSDT",
		Interval:  "1h",
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
	}
}

func newTestLoader(t *testing.T, source ports.KlineSource) *Loader {
	t.Helper()
	l, err := New(Config{Source: source, Logger: &mockLogger{}, PageDelay: -1})
	require.NoError(t, err)
	return l
}

func TestIntervalStep(t *testing.T) {
	tests := []struct {
		interval    string
		expected    time.Duration
		expectError bool
	}{
		{interval: "1m", expected: time.Minute},
		{interval: "15m", expected: 15 * time.Minute},
		{interval: "1h", expected: time.Hour},
		{interval: "4h", expected: 4 * time.Hour},
		{interval: "1d", expected: 24 * time.Hour},
		{interval: "1w", expected: 7 * 24 * time.Hour},
		{interval: "1x", expectError: true},
		{interval: "h", expectError: true},
		{interval: "", expectError: true},
		{interval: "0m", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			step, err := IntervalStep(tt.interval)
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrUnsupportedInterval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, step)
		})
	}
}

func TestLoad_MultiplePages(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(5*time.Hour - time.Millisecond)

	source := &pagedSource{pages: [][]*domain.Kline{
		{
			hourKline(start, 100),
			hourKline(start.Add(time.Hour), 101),
			hourKline(start.Add(2*time.Hour), 102),
		},
		{
			hourKline(start.Add(3*time.Hour), 103),
			hourKline(start.Add(4*time.Hour), 104),
		},
	}}

	klines, err := newTestLoader(t, source).Load(context.Background(), "ETHUSDT", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, klines, 5)
	assert.Equal(t, 2, source.calls, "loader should stop once the window is covered")
	for i, k := range klines {
		assert.Equal(t, 100.0+float64(i), k.Close)
	}
}

func TestLoad_DeduplicatesAndSorts(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(3*time.Hour - time.Millisecond)

	// Overlapping pages with a duplicate open time; the duplicate carries a
	// different close so we can check the first occurrence wins. The second
	// page also arrives out of order.
	source := &pagedSource{pages: [][]*domain.Kline{
		{
			hourKline(start, 100),
			hourKline(start.Add(time.Hour), 101),
		},
		{
			hourKline(start.Add(2*time.Hour), 102),
			func() *domain.Kline {
				k := hourKline(start.Add(time.Hour), 999)
				return k
			}(),
		},
	}}

	klines, err := newTestLoader(t, source).Load(context.Background(), "ETHUSDT", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, klines, 3)
	assert.Equal(t, 101.0, klines[1].Close, "first occurrence of a duplicate open time must win")
	for i := 1; i < len(klines); i++ {
		assert.True(t, klines[i-1].OpenTime.Before(klines[i].OpenTime), "series must be strictly ascending")
	}
}

func TestLoad_FiltersOutsideWindow(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2*time.Hour - time.Millisecond)

	source := &pagedSource{pages: [][]*domain.Kline{
		{
			hourKline(start.Add(-time.Hour), 99), // before the window
			hourKline(start, 100),
			hourKline(start.Add(time.Hour), 101),
			hourKline(start.Add(2*time.Hour), 102), // closes after the window
		},
	}}

	klines, err := newTestLoader(t, source).Load(context.Background(), "ETHUSDT", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, 100.0, klines[0].Close)
	assert.Equal(t, 101.0, klines[1].Close)
}

func TestLoad_EmptySeries(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &pagedSource{}

	_, err := newTestLoader(t, source).Load(context.Background(), "ETHUSDT", "1h", start, start.Add(time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}

func TestLoad_SourceError(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &pagedSource{err: errors.New("exchange down")}

	_, err := newTestLoader(t, source).Load(context.Background(), "ETHUSDT", "1h", start, start.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange down")
}

func TestLoad_UnsupportedInterval(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := newTestLoader(t, &pagedSource{}).Load(context.Background(), "ETHUSDT", "3x", start, start.Add(time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnsupportedInterval)
}

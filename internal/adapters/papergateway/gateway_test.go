package papergateway

import (
	"context"
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

type mockDataSource struct {
	price float64
}

func (m *mockDataSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, nil
}

func (m *mockDataSource) GetHistoricalKlines(ctx context.Context, symbol, interval string, limit int, start, end time.Time) ([]*domain.Kline, error) {
	return nil, nil
}

func TestMarketOrderFillsAtQuote(t *testing.T) {
	g, err := New(&mockDataSource{price: 100.5}, &mockLogger{})
	require.NoError(t, err)

	resp, err := g.CreateMarketOrder(context.Background(), "ETHUSDT", domain.Buy, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 100.5, resp.Price)
	assert.Equal(t, 2.0, resp.ExecutedQty)
	assert.Equal(t, "FILLED", resp.Status)
	assert.NotEmpty(t, resp.OrderID)
}

func TestStopOrderLifecycle(t *testing.T) {
	g, err := New(&mockDataSource{price: 100.0}, &mockLogger{})
	require.NoError(t, err)

	resp, err := g.CreateStopLossOrder(context.Background(), "ETHUSDT", domain.Sell, 1.0, 98.0, 98.0)
	require.NoError(t, err)

	require.NoError(t, g.CancelOrder(context.Background(), "ETHUSDT", resp.OrderID))

	// A second cancel must report the order as missing, like the real
	// exchange would.
	err = g.CancelOrder(context.Background(), "ETHUSDT", resp.OrderID)
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestOrderIDsAreUnique(t *testing.T) {
	g, err := New(&mockDataSource{price: 100.0}, &mockLogger{})
	require.NoError(t, err)

	a, err := g.CreateMarketOrder(context.Background(), "ETHUSDT", domain.Buy, 1.0)
	require.NoError(t, err)
	b, err := g.CreateStopLossOrder(context.Background(), "ETHUSDT", domain.Sell, 1.0, 98.0, 98.0)
	require.NoError(t, err)
	assert.NotEqual(t, a.OrderID, b.OrderID)
}

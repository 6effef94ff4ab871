package analytics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradertrackr/internal/models"
	"tradertrackr/internal/observability"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) List(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error) {
	args := m.Called(ctx, userID, filter)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

func setupEngine(now time.Time) (*Engine, *MockFetcher) {
	fetcher := new(MockFetcher)
	engine := NewEngine(fetcher, zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC),
		WithWeekStart(time.Monday),
	)
	return engine, fetcher
}

func TestEngine_Dashboard(t *testing.T) {
	// Arrange
	now := day(2024, time.March, 10, 12)
	engine, fetcher := setupEngine(now)
	since := day(2024, time.March, 4, 0)

	trades := []models.Trade{
		newTrade(day(2024, time.March, 9, 10), "100", models.InstrumentEquity, "Breakout"),
		newTrade(day(2024, time.March, 8, 10), "-40", models.InstrumentOptions, "Fade"),
		newTrade(day(2024, time.March, 7, 10), "", models.InstrumentEquity, "Breakout"),
	}
	fetcher.On("List", mock.Anything, "user-1", models.TradeFilter{Since: &since}).Return(trades, nil)

	// Act
	d, err := engine.Dashboard(context.Background(), "user-1", Timeframe7Days)

	// Assert
	require.NoError(t, err)
	fetcher.AssertExpectations(t)

	assert.Equal(t, Timeframe7Days, d.Timeframe)
	assert.Equal(t, 3, d.Metrics.TotalTrades)
	assert.True(t, d.Metrics.NetProfit.Equal(decimal.NewFromInt(60)))
	require.Len(t, d.PnL, 7)
	assert.True(t, sumBuckets(d.PnL).Equal(d.Metrics.NetProfit))
	require.Len(t, d.Equity, 3)
	assert.True(t, d.Equity[2].Value.Equal(d.Metrics.NetProfit))
	assert.Equal(t, "Breakout", d.Strategies.Distribution[0].Name)
	assert.Equal(t, 2, d.Strategies.Distribution[0].Value)
	assert.Zero(t, d.Excluded)
}

func TestEngine_Dashboard_DropsRowsOutsideWindow(t *testing.T) {
	// Arrange
	now := day(2024, time.March, 10, 12)
	engine, fetcher := setupEngine(now)
	since := day(2024, time.March, 4, 0)

	trades := []models.Trade{
		newTrade(day(2024, time.March, 9, 10), "100", models.InstrumentEquity, ""),
		newTrade(day(2024, time.February, 1, 10), "500", models.InstrumentEquity, ""),
	}
	fetcher.On("List", mock.Anything, "user-1", models.TradeFilter{Since: &since}).Return(trades, nil)

	// Act
	d, err := engine.Dashboard(context.Background(), "user-1", Timeframe7Days)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, d.Metrics.TotalTrades)
	assert.True(t, d.Metrics.NetProfit.Equal(decimal.NewFromInt(100)))
}

func TestEngine_Dashboard_AllTimeHasNoFilter(t *testing.T) {
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))
	fetcher.On("List", mock.Anything, "user-1", models.TradeFilter{}).Return([]models.Trade{}, nil)

	d, err := engine.Dashboard(context.Background(), "user-1", TimeframeAll)

	require.NoError(t, err)
	assert.Empty(t, d.PnL)
	assert.Empty(t, d.Equity)
	assert.Zero(t, d.Metrics.TotalTrades)
	fetcher.AssertExpectations(t)
}

func TestEngine_Dashboard_Unauthenticated(t *testing.T) {
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))

	_, err := engine.Dashboard(context.Background(), "", Timeframe30Days)

	assert.ErrorIs(t, err, ErrUnauthenticated)
	var dataErr *DataAccessError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "authenticate", dataErr.Op)
	fetcher.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Dashboard_FetchError(t *testing.T) {
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))
	boom := errors.New("connection reset")
	fetcher.On("List", mock.Anything, "user-1", mock.Anything).Return(nil, boom)

	d, err := engine.Dashboard(context.Background(), "user-1", TimeframeYear)

	assert.Nil(t, d)
	var dataErr *DataAccessError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "list trades", dataErr.Op)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_Compute_ExcludesUndatedTrades(t *testing.T) {
	now := day(2024, time.March, 10, 12)
	engine, _ := setupEngine(now)
	trades := []models.Trade{
		newTrade(day(2024, time.March, 1, 10), "10", models.InstrumentEquity, ""),
		newTrade(time.Time{}, "5", models.InstrumentEquity, ""),
	}

	d := engine.Compute(trades, TimeframeAll, now)

	assert.Equal(t, 1, d.Excluded)
	assert.Equal(t, 2, d.Metrics.TotalTrades)
	assert.Len(t, d.Equity, 1)
	require.Len(t, d.PnL, 1)
	assert.True(t, d.PnL[0].Value.Equal(decimal.NewFromInt(10)))
}

func TestEngine_Calendar(t *testing.T) {
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))
	trades := []models.Trade{
		newTrade(day(2024, time.March, 5, 9), "50", models.InstrumentEquity, ""),
		newTrade(day(2024, time.March, 5, 16), "-20", models.InstrumentEquity, ""),
		newTrade(day(2024, time.April, 2, 9), "70", models.InstrumentEquity, ""),
	}
	fetcher.On("List", mock.Anything, "user-1", models.TradeFilter{}).Return(trades, nil)

	grid, err := engine.Calendar(context.Background(), "user-1", MonthCursor{Year: 2024, Month: time.March})

	require.NoError(t, err)
	assert.True(t, grid.Profit.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 2, grid.Trades)
	assert.Equal(t, 1, grid.TradingDays)
	assert.Equal(t, "Mon", grid.Weekdays[0])
	fetcher.AssertExpectations(t)
}

func TestEngine_Calendar_Errors(t *testing.T) {
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))

	_, err := engine.Calendar(context.Background(), "", MonthCursor{Year: 2024, Month: time.March})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	var authErr *DataAccessError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "authenticate", authErr.Op)

	fetcher.On("List", mock.Anything, "user-1", mock.Anything).Return(nil, errors.New("timeout"))
	_, err = engine.Calendar(context.Background(), "user-1", MonthCursor{Year: 2024, Month: time.March})
	var dataErr *DataAccessError
	assert.ErrorAs(t, err, &dataErr)
}

func TestEngine_Calendar_ReportsUndatedTrades(t *testing.T) {
	// Arrange
	engine, fetcher := setupEngine(day(2024, time.March, 10, 12))
	trades := []models.Trade{
		newTrade(day(2024, time.March, 5, 9), "50", models.InstrumentEquity, ""),
		newTrade(time.Time{}, "900", models.InstrumentEquity, ""),
	}
	fetcher.On("List", mock.Anything, "user-1", models.TradeFilter{}).Return(trades, nil)
	before := testutil.ToFloat64(observability.DefaultMetrics.MalformedTrades)

	// Act
	grid, err := engine.Calendar(context.Background(), "user-1", MonthCursor{Year: 2024, Month: time.March})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Excluded)
	assert.Equal(t, 1, grid.Trades)
	assert.True(t, grid.Profit.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, before+1, testutil.ToFloat64(observability.DefaultMetrics.MalformedTrades))
}

func TestEmptyDashboard(t *testing.T) {
	d := EmptyDashboard(Timeframe90Days)

	assert.Equal(t, Timeframe90Days, d.Timeframe)
	assert.NotNil(t, d.PnL)
	assert.NotNil(t, d.Equity)
	assert.NotNil(t, d.Instruments.Distribution)
	assert.NotNil(t, d.Strategies.Performance)
}

func TestWriteReport(t *testing.T) {
	engine, _ := setupEngine(day(2024, time.March, 10, 12))
	d := engine.Compute([]models.Trade{
		newTrade(day(2024, time.March, 1, 10), "12.5", models.InstrumentCrypto, "Momentum"),
	}, TimeframeAll, day(2024, time.March, 10, 12))

	var buf bytes.Buffer
	WriteReport(&buf, d)

	out := buf.String()
	assert.Contains(t, out, "Total Trades:          1")
	assert.Contains(t, out, "Net Profit:            12.50")
	assert.Contains(t, out, "Profit Factor:         ∞")
	assert.Contains(t, out, "Momentum:")
	assert.Contains(t, out, "2024:")
}

package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradertrackr/internal/models"
)

// setupStore creates an isolated in-memory database per test.
func setupStore(t *testing.T) *SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Trade{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewSQLStore(db)
}

func newTrade(userID, ticker string, entry time.Time, pl *float64) *models.Trade {
	tr := &models.Trade{
		UserID:         userID,
		Ticker:         ticker,
		InstrumentType: models.InstrumentEquity,
		TradeType:      "Long",
		Strategy:       "Breakout",
		EntryDate:      entry,
		EntryPrice:     decimal.NewFromInt(100),
		PositionSize:   decimal.NewFromInt(5),
	}
	if pl != nil {
		tr.ProfitLoss = decimal.NewNullDecimal(decimal.NewFromFloat(*pl))
	}
	return tr
}

func ptr(f float64) *float64 { return &f }

func TestSQLStore_CreateAndGet(t *testing.T) {
	// Arrange
	s := setupStore(t)
	ctx := context.Background()
	entry := time.Date(2024, 4, 2, 15, 0, 0, 0, time.FixedZone("EST", -5*3600))
	tr := newTrade("user-1", "msft", entry, ptr(42.5))

	// Act
	err := s.Create(ctx, tr)

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.Equal(t, "USD", tr.Currency)

	got, err := s.Get(ctx, "user-1", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got.Ticker)
	assert.True(t, got.EntryDate.Equal(entry))
	assert.True(t, got.ProfitLoss.Valid)
	assert.True(t, got.ProfitLoss.Decimal.Equal(decimal.RequireFromString("42.5")))
	assert.False(t, got.ExitPrice.Valid)

	_, err = s.Get(ctx, "someone-else", tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_CreateRejectsInvalidTrade(t *testing.T) {
	s := setupStore(t)
	tr := newTrade("user-1", "AAPL", time.Time{}, nil)

	err := s.Create(context.Background(), tr)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, models.ErrInvalidTrade)
}

func TestSQLStore_ListFiltersAndOrder(t *testing.T) {
	// Arrange
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	win := newTrade("user-1", "AAPL", base, ptr(100))
	loss := newTrade("user-1", "AMZN", base.AddDate(0, 0, 5), ptr(-40))
	open := newTrade("user-1", "TSLA", base.AddDate(0, 0, 10), nil)
	crypto := newTrade("user-1", "BTC", base.AddDate(0, 0, 15), ptr(0))
	crypto.InstrumentType = models.InstrumentCrypto
	crypto.TradeType = "Buy"
	crypto.Strategy = ""
	other := newTrade("user-2", "AAPL", base, ptr(7))

	for _, tr := range []*models.Trade{win, loss, open, crypto, other} {
		require.NoError(t, s.Create(ctx, tr))
	}
	since := base.AddDate(0, 0, 5)

	testCases := []struct {
		name    string
		filter  models.TradeFilter
		tickers []string
	}{
		{name: "All newest first", filter: models.TradeFilter{}, tickers: []string{"BTC", "TSLA", "AMZN", "AAPL"}},
		{name: "Since", filter: models.TradeFilter{Since: &since}, tickers: []string{"BTC", "TSLA", "AMZN"}},
		{name: "Instrument", filter: models.TradeFilter{InstrumentType: models.InstrumentCrypto}, tickers: []string{"BTC"}},
		{name: "Trade type", filter: models.TradeFilter{TradeType: "Buy"}, tickers: []string{"BTC"}},
		{name: "Strategy", filter: models.TradeFilter{Strategy: "Breakout"}, tickers: []string{"TSLA", "AMZN", "AAPL"}},
		{name: "Ticker substring", filter: models.TradeFilter{TickerSubstring: "a"}, tickers: []string{"TSLA", "AMZN", "AAPL"}},
		{name: "Profit", filter: models.TradeFilter{ProfitLossSign: models.PnLProfit}, tickers: []string{"AAPL"}},
		{name: "Loss", filter: models.TradeFilter{ProfitLossSign: models.PnLLoss}, tickers: []string{"AMZN"}},
		{name: "Breakeven includes open", filter: models.TradeFilter{ProfitLossSign: models.PnLBreakeven}, tickers: []string{"BTC", "TSLA"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			trades, err := s.List(ctx, "user-1", tc.filter)

			// Assert
			require.NoError(t, err)
			var tickers []string
			for _, tr := range trades {
				tickers = append(tickers, tr.Ticker)
			}
			assert.Equal(t, tc.tickers, tickers)
		})
	}
}

func TestSQLStore_Update(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tr := newTrade("user-1", "AAPL", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, s.Create(ctx, tr))

	exit := tr.EntryDate.Add(48 * time.Hour)
	tr.ExitDate = &exit
	tr.ExitPrice = decimal.NewNullDecimal(decimal.NewFromInt(110))
	tr.ProfitLoss = decimal.NewNullDecimal(decimal.NewFromInt(50))
	require.NoError(t, s.Update(ctx, tr))

	got, err := s.Get(ctx, "user-1", tr.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOpen())
	assert.True(t, got.ProfitLoss.Decimal.Equal(decimal.NewFromInt(50)))

	foreign := *tr
	foreign.UserID = "user-2"
	assert.ErrorIs(t, s.Update(ctx, &foreign), ErrNotFound)
}

func TestSQLStore_DeleteAndDeleteAll(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := newTrade("user-1", "AAPL", day, nil)
	second := newTrade("user-1", "MSFT", day, nil)
	kept := newTrade("user-2", "NVDA", day, nil)
	for _, tr := range []*models.Trade{first, second, kept} {
		require.NoError(t, s.Create(ctx, tr))
	}

	assert.ErrorIs(t, s.Delete(ctx, "user-2", first.ID), ErrNotFound)
	require.NoError(t, s.Delete(ctx, "user-1", first.ID))
	assert.ErrorIs(t, s.Delete(ctx, "user-1", first.ID), ErrNotFound)

	n, err := s.DeleteAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := s.List(ctx, "user-2", models.TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = s.DeleteAll(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

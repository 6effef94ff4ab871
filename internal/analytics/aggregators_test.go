package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradertrackr/internal/models"
)

// newTrade builds a trade with the given entry date and P/L. An empty pl means null.
func newTrade(entry time.Time, pl string, instrument models.InstrumentType, strategy string) models.Trade {
	t := models.Trade{
		UserID:         "user-1",
		Ticker:         "AAPL",
		InstrumentType: instrument,
		TradeType:      "Long",
		Strategy:       strategy,
		EntryDate:      entry,
		EntryPrice:     decimal.NewFromInt(100),
		PositionSize:   decimal.NewFromInt(1),
	}
	if pl != "" {
		t.ProfitLoss = decimal.NewNullDecimal(decimal.RequireFromString(pl))
	}
	return t
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func sumBuckets(buckets []Bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Value)
	}
	return total
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
	}{
		{"7days", Timeframe7Days},
		{"30DAYS", Timeframe30Days},
		{" 90days ", Timeframe90Days},
		{"year", TimeframeYear},
		{"all", TimeframeAll},
		{"", TimeframeAll},
		{"fortnight", TimeframeAll},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeframe(tt.in))
		})
	}
}

func TestTimeframe_Since(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

	since, ok := Timeframe7Days.Since(now)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.March, 4, 0), since)

	since, ok = Timeframe30Days.Since(now)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.February, 10, 0), since)

	since, ok = TimeframeYear.Since(now)
	require.True(t, ok)
	assert.Equal(t, day(2023, time.March, 10, 0), since)

	_, ok = TimeframeAll.Since(now)
	assert.False(t, ok)
	assert.Nil(t, TimeframeAll.Filter(now).Since)
	require.NotNil(t, Timeframe90Days.Filter(now).Since)
}

func TestComputeMetrics(t *testing.T) {
	base := day(2024, time.January, 1, 10)

	t.Run("mixed results", func(t *testing.T) {
		trades := []models.Trade{
			newTrade(base, "100", models.InstrumentEquity, "Breakout"),
			newTrade(base, "-40", models.InstrumentEquity, "Breakout"),
			newTrade(base, "", models.InstrumentEquity, "Breakout"),
		}

		m := ComputeMetrics(trades)

		assert.Equal(t, 3, m.TotalTrades)
		assert.InDelta(t, 33.33, m.WinRate, 0.01)
		assert.True(t, m.AvgGain.Equal(decimal.NewFromInt(100)))
		assert.True(t, m.AvgLoss.Equal(decimal.NewFromInt(40)))
		assert.InDelta(t, 2.5, float64(m.ProfitFactor), 1e-9)
		assert.True(t, m.NetProfit.Equal(decimal.NewFromInt(60)))
	})

	t.Run("empty set", func(t *testing.T) {
		m := ComputeMetrics(nil)

		assert.Equal(t, 0, m.TotalTrades)
		assert.Zero(t, m.WinRate)
		assert.True(t, m.AvgGain.IsZero())
		assert.True(t, m.AvgLoss.IsZero())
		assert.Zero(t, float64(m.ProfitFactor))
		assert.True(t, m.NetProfit.IsZero())
	})

	t.Run("wins only is infinite profit factor", func(t *testing.T) {
		m := ComputeMetrics([]models.Trade{
			newTrade(base, "10", models.InstrumentCrypto, ""),
			newTrade(base, "30", models.InstrumentCrypto, ""),
		})

		assert.True(t, m.ProfitFactor.IsInf())
		assert.Equal(t, 100.0, m.WinRate)
		assert.True(t, m.AvgGain.Equal(decimal.NewFromInt(20)))
	})

	t.Run("only zero and null trades", func(t *testing.T) {
		m := ComputeMetrics([]models.Trade{
			newTrade(base, "0", models.InstrumentForex, ""),
			newTrade(base, "", models.InstrumentForex, ""),
		})

		assert.Equal(t, 2, m.TotalTrades)
		assert.Zero(t, m.WinRate)
		assert.Zero(t, float64(m.ProfitFactor))
	})

	t.Run("losses only", func(t *testing.T) {
		m := ComputeMetrics([]models.Trade{newTrade(base, "-25.5", models.InstrumentFutures, "")})

		assert.Zero(t, m.WinRate)
		assert.Zero(t, float64(m.ProfitFactor))
		assert.True(t, m.AvgLoss.Equal(decimal.RequireFromString("25.5")))
		assert.True(t, m.NetProfit.Equal(decimal.RequireFromString("-25.5")))
	})
}

func TestRatio_JSON(t *testing.T) {
	b, err := json.Marshal(Ratio(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, `"Infinity"`, string(b))

	b, err = json.Marshal(Ratio(2.5))
	require.NoError(t, err)
	assert.Equal(t, `2.5`, string(b))

	var r Ratio
	require.NoError(t, json.Unmarshal([]byte(`"Infinity"`), &r))
	assert.True(t, r.IsInf())
	require.NoError(t, json.Unmarshal([]byte(`1.25`), &r))
	assert.Equal(t, Ratio(1.25), r)

	assert.Equal(t, "∞", FormatProfitFactor(Ratio(math.Inf(1))))
	assert.Equal(t, "2.50", FormatProfitFactor(Ratio(2.5)))
}

func TestGroupByTimeframe_SevenDays(t *testing.T) {
	now := day(2024, time.March, 10, 12)
	trades := []models.Trade{
		newTrade(day(2024, time.March, 10, 9), "50", models.InstrumentEquity, ""),
		newTrade(day(2024, time.March, 8, 9), "-20", models.InstrumentEquity, ""),
		newTrade(day(2024, time.March, 8, 14), "5", models.InstrumentEquity, ""),
		newTrade(day(2024, time.March, 1, 9), "100", models.InstrumentEquity, ""),
	}

	buckets := GroupByTimeframe(trades, Timeframe7Days, now, time.UTC)

	require.Len(t, buckets, 7)
	assert.Equal(t, "04 Mar", buckets[0].Label)
	assert.Equal(t, "10 Mar", buckets[6].Label)
	assert.True(t, buckets[6].Value.Equal(decimal.NewFromInt(50)))
	assert.True(t, buckets[4].Value.Equal(decimal.NewFromInt(-15)))

	zeros := 0
	for _, b := range buckets {
		if b.Value.IsZero() {
			zeros++
		}
	}
	assert.Equal(t, 5, zeros)
}

func TestGroupByTimeframe_SevenDaysEmpty(t *testing.T) {
	buckets := GroupByTimeframe(nil, Timeframe7Days, day(2024, time.March, 10, 12), time.UTC)

	require.Len(t, buckets, 7)
	assert.True(t, sumBuckets(buckets).IsZero())
}

func TestGroupByTimeframe_Labels(t *testing.T) {
	now := day(2024, time.March, 10, 12)
	trades := []models.Trade{
		newTrade(day(2024, time.January, 15, 9), "30", models.InstrumentEquity, ""),
		newTrade(day(2023, time.December, 20, 9), "-10", models.InstrumentEquity, ""),
		newTrade(day(2024, time.January, 2, 9), "", models.InstrumentEquity, ""),
		newTrade(day(2024, time.February, 29, 9), "7.5", models.InstrumentEquity, ""),
	}

	tests := []struct {
		name   string
		tf     Timeframe
		labels []string
	}{
		{"30days groups by month", Timeframe30Days, []string{"Dec 23", "Jan 24", "Feb 24"}},
		{"90days groups by quarter", Timeframe90Days, []string{"Q4 '23", "Q1 '24"}},
		{"year groups by year", TimeframeYear, []string{"2023", "2024"}},
		{"all groups by year", TimeframeAll, []string{"2023", "2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := GroupByTimeframe(trades, tt.tf, now, time.UTC)

			labels := make([]string, 0, len(buckets))
			for _, b := range buckets {
				labels = append(labels, b.Label)
			}
			assert.Equal(t, tt.labels, labels)
			assert.True(t, sumBuckets(buckets).Equal(ComputeMetrics(trades).NetProfit))
		})
	}
}

func TestGroupByTimeframe_UsesLocalEntryDay(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, ny)
	// 02:00 UTC on the 10th is still the 9th in New York.
	trades := []models.Trade{newTrade(day(2024, time.March, 10, 2), "12", models.InstrumentEquity, "")}

	buckets := GroupByTimeframe(trades, Timeframe7Days, now, ny)

	assert.True(t, buckets[5].Value.Equal(decimal.NewFromInt(12)))
	assert.True(t, buckets[6].Value.IsZero())
}

func TestGroupByTimeframe_SkipsUndatedTrades(t *testing.T) {
	trades := []models.Trade{
		newTrade(time.Time{}, "99", models.InstrumentEquity, ""),
		newTrade(day(2024, time.January, 1, 9), "1", models.InstrumentEquity, ""),
	}

	buckets := GroupByTimeframe(trades, TimeframeAll, day(2024, time.March, 1, 0), time.UTC)

	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Value.Equal(decimal.NewFromInt(1)))
}

func TestBuildEquityCurve(t *testing.T) {
	first := newTrade(day(2024, time.January, 3, 9), "10", models.InstrumentEquity, "A")
	tieA := newTrade(day(2024, time.January, 5, 9), "-4", models.InstrumentEquity, "tie-a")
	tieB := newTrade(day(2024, time.January, 5, 9), "", models.InstrumentEquity, "tie-b")
	last := newTrade(day(2024, time.January, 9, 9), "20", models.InstrumentEquity, "B")

	trades := []models.Trade{last, tieA, first, tieB}
	curve := BuildEquityCurve(trades)

	require.Len(t, curve, 4)
	values := []string{"10", "6", "6", "26"}
	for i, want := range values {
		assert.True(t, curve[i].Value.Equal(decimal.RequireFromString(want)), "point %d", i)
	}
	assert.Equal(t, first.EntryDate, curve[0].Date)
	assert.True(t, curve[len(curve)-1].Value.Equal(ComputeMetrics(trades).NetProfit))

	// Input order is untouched.
	assert.Equal(t, "B", trades[0].Strategy)
}

func TestBuildEquityCurve_Empty(t *testing.T) {
	curve := BuildEquityCurve(nil)

	assert.NotNil(t, curve)
	assert.Empty(t, curve)
}

func TestBreakdown(t *testing.T) {
	base := day(2024, time.February, 1, 9)
	trades := []models.Trade{
		newTrade(base, "10.005", models.InstrumentOptions, "Scalp"),
		newTrade(base, "-5", models.InstrumentEquity, ""),
		newTrade(base, "20", models.InstrumentOptions, "Scalp"),
		newTrade(base, "", "", "Swing"),
	}

	t.Run("by strategy", func(t *testing.T) {
		b := BreakdownByStrategy(trades)

		assert.Equal(t, []Slice{
			{Name: "Scalp", Value: 2},
			{Name: UnknownCategory, Value: 1},
			{Name: "Swing", Value: 1},
		}, b.Distribution)

		require.Len(t, b.Performance, 3)
		assert.Equal(t, "30.01", b.Performance[0].PnL.StringFixed(2))
		assert.Equal(t, 100.0, b.Performance[0].WinRate)
		assert.True(t, b.Performance[1].PnL.Equal(decimal.NewFromInt(-5)))
		assert.Zero(t, b.Performance[2].WinRate)
	})

	t.Run("by instrument", func(t *testing.T) {
		b := BreakdownByInstrument(trades)

		total := 0
		for _, s := range b.Distribution {
			total += s.Value
		}
		assert.Equal(t, len(trades), total)
		assert.Equal(t, string(models.InstrumentOptions), b.Distribution[0].Name)
		assert.Equal(t, UnknownCategory, b.Distribution[2].Name)
	})

	t.Run("empty", func(t *testing.T) {
		b := BreakdownByStrategy(nil)

		assert.NotNil(t, b.Distribution)
		assert.Empty(t, b.Distribution)
		assert.Empty(t, b.Performance)
	})
}

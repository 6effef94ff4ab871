package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

const (
	dayLabelLayout   = "02 Jan"
	monthLabelLayout = "Jan 06"
)

// Bucket is the summed signed P/L of one time bucket.
type Bucket struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// GroupByTimeframe sums P/L per time bucket, with granularity chosen by the timeframe:
// trailing days for 7days, months for 30days, quarters for 90days and years otherwise.
// Buckets are derived from each trade's entry date in loc; exit dates are never used.
func GroupByTimeframe(trades []models.Trade, tf Timeframe, now time.Time, loc *time.Location) []Bucket {
	dated, _ := chronological(trades)

	switch tf {
	case Timeframe7Days:
		return groupTrailingDays(dated, timeframeDays[Timeframe7Days], now.In(loc), loc)
	case Timeframe30Days:
		return groupByMonth(dated, loc)
	case Timeframe90Days:
		return groupInOrder(dated, loc, quarterLabel)
	default:
		return groupInOrder(dated, loc, yearLabel)
	}
}

// groupTrailingDays emits exactly n day buckets ending today, zero-filled.
// Trades outside those days do not contribute.
func groupTrailingDays(trades []models.Trade, n int, now time.Time, loc *time.Location) []Bucket {
	buckets := make([]Bucket, n)
	index := make(map[string]int, n)

	first := startOfDay(now).AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		day := first.AddDate(0, 0, i)
		buckets[i] = Bucket{Label: day.Format(dayLabelLayout), Value: decimal.Zero}
		index[day.Format(DateKeyLayout)] = i
	}

	for _, t := range trades {
		i, ok := index[t.EntryDate.In(loc).Format(DateKeyLayout)]
		if !ok {
			continue
		}
		buckets[i].Value = buckets[i].Value.Add(t.ProfitLossValue())
	}
	return buckets
}

type monthKey struct {
	year  int
	month time.Month
}

// groupByMonth emits one bucket per month present, ordered by (year, month).
func groupByMonth(trades []models.Trade, loc *time.Location) []Bucket {
	sums := make(map[monthKey]decimal.Decimal)
	for _, t := range trades {
		y, m, _ := t.EntryDate.In(loc).Date()
		k := monthKey{year: y, month: m}
		sums[k] = sums[k].Add(t.ProfitLossValue())
	}

	keys := make([]monthKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		label := time.Date(k.year, k.month, 1, 0, 0, 0, 0, loc).Format(monthLabelLayout)
		buckets = append(buckets, Bucket{Label: label, Value: sums[k]})
	}
	return buckets
}

// groupInOrder emits one bucket per distinct label in order of first appearance.
func groupInOrder(trades []models.Trade, loc *time.Location, label func(time.Time) string) []Bucket {
	buckets := make([]Bucket, 0)
	index := make(map[string]int)

	for _, t := range trades {
		l := label(t.EntryDate.In(loc))
		i, ok := index[l]
		if !ok {
			i = len(buckets)
			index[l] = i
			buckets = append(buckets, Bucket{Label: l, Value: decimal.Zero})
		}
		buckets[i].Value = buckets[i].Value.Add(t.ProfitLossValue())
	}
	return buckets
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("Q%d '%02d", (int(t.Month())-1)/3+1, t.Year()%100)
}

func yearLabel(t time.Time) string {
	return strconv.Itoa(t.Year())
}

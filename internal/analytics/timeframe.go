// Package analytics turns a user's trade records into dashboard statistics.
//
// Every aggregator is a pure function over a snapshot of trades. Wall-clock time and the
// calendar location are always passed in, never read from globals.
package analytics

import (
	"sort"
	"strings"
	"time"

	"tradertrackr/internal/models"
)

// Timeframe is a symbolic relative window selected on the dashboard.
type Timeframe string

const (
	Timeframe7Days  Timeframe = "7days"
	Timeframe30Days Timeframe = "30days"
	Timeframe90Days Timeframe = "90days"
	TimeframeYear   Timeframe = "year"
	TimeframeAll    Timeframe = "all"
)

// Timeframes lists the selector options in display order.
var Timeframes = []Timeframe{Timeframe7Days, Timeframe30Days, Timeframe90Days, TimeframeYear, TimeframeAll}

var timeframeDays = map[Timeframe]int{
	Timeframe7Days:  7,
	Timeframe30Days: 30,
	Timeframe90Days: 90,
}

// ParseTimeframe maps a selector token to a Timeframe.
// Unknown tokens mean "all" so a stale selector never breaks the dashboard.
func ParseTimeframe(s string) Timeframe {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if tf == TimeframeYear {
		return tf
	}
	if _, ok := timeframeDays[tf]; ok {
		return tf
	}
	return TimeframeAll
}

// Since returns the inclusive start boundary for the window ending at now, in now's location.
// The second result is false when the timeframe does not filter.
//
// Day windows start at midnight of the oldest day the grouping engine buckets, so the
// 7-day view covers today and the six days before it.
func (tf Timeframe) Since(now time.Time) (time.Time, bool) {
	if days, ok := timeframeDays[tf]; ok {
		return startOfDay(now).AddDate(0, 0, -(days - 1)), true
	}
	if tf == TimeframeYear {
		return startOfDay(now.AddDate(-1, 0, 0)), true
	}
	return time.Time{}, false
}

// Filter returns the fetch filter for the window ending at now.
func (tf Timeframe) Filter(now time.Time) models.TradeFilter {
	var f models.TradeFilter
	if since, ok := tf.Since(now); ok {
		f.Since = &since
	}
	return f
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// chronological returns the trades that carry an entry date, stable-sorted by it ascending,
// and how many were dropped for a missing entry date. The input is not modified.
func chronological(trades []models.Trade) ([]models.Trade, int) {
	dated := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.EntryDate.IsZero() {
			continue
		}
		dated = append(dated, t)
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].EntryDate.Before(dated[j].EntryDate)
	})
	return dated, len(trades) - len(dated)
}

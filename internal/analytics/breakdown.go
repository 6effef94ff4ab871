package analytics

import (
	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

// UnknownCategory labels trades with no strategy or instrument type.
const UnknownCategory = "Unknown"

// Slice is one category's share of a distribution.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CategoryPerformance is the P/L and win rate of one category.
type CategoryPerformance struct {
	Name    string          `json:"name"`
	PnL     decimal.Decimal `json:"pnl"`
	WinRate float64         `json:"win_rate"`
}

// Breakdown holds both views of one categorical dimension, in first-appearance order.
type Breakdown struct {
	Distribution []Slice               `json:"distribution"`
	Performance  []CategoryPerformance `json:"performance"`
}

// BreakdownByInstrument groups trades by instrument type.
func BreakdownByInstrument(trades []models.Trade) Breakdown {
	return breakdown(trades, func(t models.Trade) string { return string(t.InstrumentType) })
}

// BreakdownByStrategy groups trades by strategy label.
func BreakdownByStrategy(trades []models.Trade) Breakdown {
	return breakdown(trades, func(t models.Trade) string { return t.Strategy })
}

type categoryTally struct {
	name   string
	count  int
	wins   int
	profit decimal.Decimal
}

func breakdown(trades []models.Trade, key func(models.Trade) string) Breakdown {
	var tallies []*categoryTally
	index := make(map[string]*categoryTally)

	for _, t := range trades {
		name := key(t)
		if name == "" {
			name = UnknownCategory
		}
		tally, ok := index[name]
		if !ok {
			tally = &categoryTally{name: name, profit: decimal.Zero}
			index[name] = tally
			tallies = append(tallies, tally)
		}

		pl := t.ProfitLossValue()
		tally.count++
		tally.profit = tally.profit.Add(pl)
		if pl.IsPositive() {
			tally.wins++
		}
	}

	b := Breakdown{
		Distribution: make([]Slice, 0, len(tallies)),
		Performance:  make([]CategoryPerformance, 0, len(tallies)),
	}
	for _, tally := range tallies {
		winRate := 0.0
		if tally.count > 0 {
			winRate = float64(tally.wins) / float64(tally.count) * 100
		}
		b.Distribution = append(b.Distribution, Slice{Name: tally.name, Value: tally.count})
		b.Performance = append(b.Performance, CategoryPerformance{
			Name:    tally.name,
			PnL:     tally.profit.Round(2),
			WinRate: winRate,
		})
	}
	return b
}

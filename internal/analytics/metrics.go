package analytics

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

// Ratio is a dimensionless statistic that may be +Inf.
// JSON has no infinity, so +Inf is encoded as the string "Infinity".
type Ratio float64

const infinityJSON = `"Infinity"`

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 1) {
		return []byte(infinityJSON), nil
	}
	if math.IsNaN(f) || math.IsInf(f, -1) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == infinityJSON {
		*r = Ratio(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// IsInf reports whether the ratio is positive infinity.
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}

// Metrics summarizes a set of trades.
type Metrics struct {
	TotalTrades  int             `json:"total_trades"`
	WinRate      float64         `json:"win_rate"` // percent, 0..100
	AvgGain      decimal.Decimal `json:"avg_gain"`
	AvgLoss      decimal.Decimal `json:"avg_loss"` // absolute value
	ProfitFactor Ratio           `json:"profit_factor"`
	NetProfit    decimal.Decimal `json:"net_profit"`
}

// ComputeMetrics calculates summary statistics over all trades.
// Trades with null or zero P/L count toward TotalTrades only.
func ComputeMetrics(trades []models.Trade) Metrics {
	m := Metrics{
		TotalTrades: len(trades),
		AvgGain:     decimal.Zero,
		AvgLoss:     decimal.Zero,
		NetProfit:   decimal.Zero,
	}

	sumGains := decimal.Zero
	sumLosses := decimal.Zero // absolute
	wins, losses := 0, 0

	for _, t := range trades {
		pl := t.ProfitLossValue()
		switch {
		case pl.IsPositive():
			sumGains = sumGains.Add(pl)
			wins++
		case pl.IsNegative():
			sumLosses = sumLosses.Add(pl.Abs())
			losses++
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(wins) / float64(m.TotalTrades) * 100
	}
	if wins > 0 {
		m.AvgGain = sumGains.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		m.AvgLoss = sumLosses.Div(decimal.NewFromInt(int64(losses)))
	}

	switch {
	case sumLosses.IsZero() && sumGains.IsPositive():
		m.ProfitFactor = Ratio(math.Inf(1))
	case sumLosses.IsZero():
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = Ratio(sumGains.Div(sumLosses).InexactFloat64())
	}

	m.NetProfit = sumGains.Sub(sumLosses)
	return m
}

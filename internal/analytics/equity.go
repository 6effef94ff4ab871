package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

// EquityPoint is the cumulative P/L after one trade.
type EquityPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// BuildEquityCurve returns one point per dated trade in entry order, ties kept in input order.
func BuildEquityCurve(trades []models.Trade) []EquityPoint {
	dated, _ := chronological(trades)

	curve := make([]EquityPoint, 0, len(dated))
	running := decimal.Zero
	for _, t := range dated {
		running = running.Add(t.ProfitLossValue())
		curve = append(curve, EquityPoint{Date: t.EntryDate, Value: running})
	}
	return curve
}

package models

import (
	"strings"
	"time"
)

// PnLSign selects trades by the sign of their profit/loss.
type PnLSign string

const (
	PnLAny       PnLSign = ""
	PnLProfit    PnLSign = "profit"
	PnLLoss      PnLSign = "loss"
	PnLBreakeven PnLSign = "breakeven"
)

// ParsePnLSign maps a query value to a PnLSign; unknown values select everything.
func ParsePnLSign(s string) PnLSign {
	switch PnLSign(strings.ToLower(strings.TrimSpace(s))) {
	case PnLProfit:
		return PnLProfit
	case PnLLoss:
		return PnLLoss
	case PnLBreakeven:
		return PnLBreakeven
	default:
		return PnLAny
	}
}

// ValidTickerSearch reports whether s is safe to use as a ticker substring. Symbols use
// letters, digits and the separators seen in exchange tickers; wildcard and grouping
// characters are rejected so the substring cannot change a remote query.
func ValidTickerSearch(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(" .-/:^=!", r):
		default:
			return false
		}
	}
	return true
}

// TradeFilter narrows a trade listing. Zero values do not filter.
type TradeFilter struct {
	Since           *time.Time
	InstrumentType  InstrumentType
	TradeType       string
	Strategy        string
	ProfitLossSign  PnLSign
	TickerSubstring string
}

// Matches applies the filter to a single trade in memory.
func (f TradeFilter) Matches(t Trade) bool {
	if f.Since != nil && t.EntryDate.Before(*f.Since) {
		return false
	}
	if f.InstrumentType != "" && t.InstrumentType != f.InstrumentType {
		return false
	}
	if f.TradeType != "" && t.TradeType != f.TradeType {
		return false
	}
	if f.Strategy != "" && t.Strategy != f.Strategy {
		return false
	}
	if f.TickerSubstring != "" &&
		!strings.Contains(strings.ToLower(t.Ticker), strings.ToLower(f.TickerSubstring)) {
		return false
	}

	pl := t.ProfitLossValue()
	switch f.ProfitLossSign {
	case PnLProfit:
		return pl.IsPositive()
	case PnLLoss:
		return pl.IsNegative()
	case PnLBreakeven:
		return pl.IsZero()
	}
	return true
}

// Package export writes trade records in portable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

// Header is the column order of the trades CSV.
var Header = []string{
	"id",
	"ticker",
	"instrument_type",
	"trade_type",
	"strategy",
	"entry_date", // RFC3339
	"exit_date",
	"entry_price",
	"exit_price",
	"position_size",
	"stop_loss",
	"target",
	"fees",
	"currency",
	"profit_loss",
	"rationale",
	"market_conditions",
	"emotion_before",
	"reflection",
	"screenshot_url",
}

// WriteTradesCSV writes one row per trade. Null values are written as empty cells.
func WriteTradesCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range trades {
		if err := cw.Write(tradeRecord(t)); err != nil {
			return fmt.Errorf("write trade %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func tradeRecord(t models.Trade) []string {
	return []string{
		t.ID.String(),
		t.Ticker,
		string(t.InstrumentType),
		t.TradeType,
		t.Strategy,
		formatTime(&t.EntryDate),
		formatTime(t.ExitDate),
		t.EntryPrice.String(),
		nullable(t.ExitPrice),
		t.PositionSize.String(),
		nullable(t.StopLoss),
		nullable(t.Target),
		nullable(t.Fees),
		t.Currency,
		nullable(t.ProfitLoss),
		t.Rationale,
		t.MarketConditions,
		t.EmotionBefore,
		t.Reflection,
		t.ScreenshotURL,
	}
}

func nullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Filename returns the download name for a user's export taken at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("trades-%s.csv", now.UTC().Format("20060102-150405"))
}

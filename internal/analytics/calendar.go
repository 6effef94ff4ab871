package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradertrackr/internal/models"
)

// DateKeyLayout formats calendar-day keys.
const DateKeyLayout = "2006-01-02"

// CalendarDay is the summed P/L and trade count of one local calendar day.
type CalendarDay struct {
	Profit decimal.Decimal `json:"profit"`
	Trades int             `json:"trades"`
}

// AggregateCalendar sums P/L and trade counts per local calendar day of the entry date.
// Trades without an entry date are skipped.
func AggregateCalendar(trades []models.Trade, loc *time.Location) map[string]CalendarDay {
	days := make(map[string]CalendarDay)
	for _, t := range trades {
		if t.EntryDate.IsZero() {
			continue
		}
		key := t.EntryDate.In(loc).Format(DateKeyLayout)
		day, ok := days[key]
		if !ok {
			day.Profit = decimal.Zero
		}
		day.Profit = day.Profit.Add(t.ProfitLossValue())
		day.Trades++
		days[key] = day
	}
	return days
}

// MonthCursor is the month shown in the calendar view.
type MonthCursor struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// CursorFor returns the cursor of the month containing t.
func CursorFor(t time.Time) MonthCursor {
	return MonthCursor{Year: t.Year(), Month: t.Month()}
}

// ParseCursor builds a cursor from year and month numbers.
func ParseCursor(year, month int) (MonthCursor, error) {
	if month < 1 || month > 12 {
		return MonthCursor{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 1 || year > 9999 {
		return MonthCursor{}, fmt.Errorf("invalid year %d", year)
	}
	return MonthCursor{Year: year, Month: time.Month(month)}, nil
}

// Next returns the following month.
func (c MonthCursor) Next() MonthCursor {
	return CursorFor(time.Date(c.Year, c.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Prev returns the preceding month.
func (c MonthCursor) Prev() MonthCursor {
	return CursorFor(time.Date(c.Year, c.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// First returns midnight of the first day of the month in loc.
func (c MonthCursor) First(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, loc)
}

// Contains reports whether t falls in the month, in t's location.
func (c MonthCursor) Contains(t time.Time) bool {
	return t.Year() == c.Year && t.Month() == c.Month
}

func (c MonthCursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// Sign classifies a day for coloring.
type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignNeutral  Sign = "neutral"
)

// GridCell is one day slot of the month grid.
// Filler cells from adjacent months carry their own date's data but are not in the month.
type GridCell struct {
	Date    time.Time    `json:"date"`
	Key     string       `json:"key"`
	Day     int          `json:"day"`
	InMonth bool         `json:"in_month"`
	Summary *CalendarDay `json:"summary,omitempty"`
	Sign    Sign         `json:"sign"`
}

// MonthGrid is a month laid out in full weeks, with totals for in-month days only.
type MonthGrid struct {
	Cursor      MonthCursor     `json:"cursor"`
	Title       string          `json:"title"`
	Weekdays    []string        `json:"weekdays"`
	Weeks       [][]GridCell    `json:"weeks"`
	Profit      decimal.Decimal `json:"profit"`
	Trades      int             `json:"trades"`
	TradingDays int             `json:"trading_days"`
	Excluded    int             `json:"excluded_trades"`
}

// BuildMonthGrid lays the month out in rows of seven days starting on weekStart.
func BuildMonthGrid(cursor MonthCursor, days map[string]CalendarDay, weekStart time.Weekday, loc *time.Location) MonthGrid {
	first := cursor.First(loc)
	last := first.AddDate(0, 1, -1)

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	trail := (int(weekStart) + 6 - int(last.Weekday()) + 7) % 7
	total := lead + last.Day() + trail

	grid := MonthGrid{
		Cursor:   cursor,
		Title:    first.Format("January 2006"),
		Weekdays: weekdayHeaders(weekStart),
		Weeks:    make([][]GridCell, 0, total/7),
		Profit:   decimal.Zero,
	}

	start := first.AddDate(0, 0, -lead)
	var week []GridCell
	for i := 0; i < total; i++ {
		date := start.AddDate(0, 0, i)
		key := date.Format(DateKeyLayout)
		cell := GridCell{
			Date:    date,
			Key:     key,
			Day:     date.Day(),
			InMonth: cursor.Contains(date),
			Sign:    SignNeutral,
		}
		if summary, ok := days[key]; ok {
			s := summary
			cell.Summary = &s
			cell.Sign = signOf(s.Profit)
			if cell.InMonth {
				grid.Profit = grid.Profit.Add(s.Profit)
				grid.Trades += s.Trades
				grid.TradingDays++
			}
		}

		week = append(week, cell)
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}
	return grid
}

func signOf(d decimal.Decimal) Sign {
	switch {
	case d.IsPositive():
		return SignPositive
	case d.IsNegative():
		return SignNegative
	default:
		return SignNeutral
	}
}

func weekdayHeaders(weekStart time.Weekday) []string {
	headers := make([]string, 7)
	for i := range headers {
		headers[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return headers
}

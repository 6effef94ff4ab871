package analytics

import (
	"fmt"
	"io"
)

// FormatProfitFactor renders a profit factor for display.
func FormatProfitFactor(r Ratio) string {
	if r.IsInf() {
		return "∞"
	}
	return fmt.Sprintf("%.2f", float64(r))
}

// WriteReport prints a plain-text dashboard summary.
func WriteReport(w io.Writer, d *Dashboard) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Timeframe:             %s\n", d.Timeframe)
	fmt.Fprintf(w, "Total Trades:          %d\n", d.Metrics.TotalTrades)
	if d.Excluded > 0 {
		fmt.Fprintf(w, "Undated Trades:        %d\n", d.Excluded)
	}

	fmt.Fprintln(w, "\n-- Performance --")
	fmt.Fprintf(w, "Net Profit:            %s\n", d.Metrics.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Win Rate:              %.1f%%\n", d.Metrics.WinRate)
	fmt.Fprintf(w, "Avg Gain:              %s\n", d.Metrics.AvgGain.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", d.Metrics.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor:         %s\n", FormatProfitFactor(d.Metrics.ProfitFactor))

	fmt.Fprintln(w, "\n-- P/L by Period --")
	for _, b := range d.PnL {
		fmt.Fprintf(w, "%-22s %s\n", b.Label+":", b.Value.StringFixed(2))
	}

	fmt.Fprintln(w, "\n-- Strategies --")
	for _, p := range d.Strategies.Performance {
		fmt.Fprintf(w, "%-22s %s (%.1f%% win)\n", p.Name+":", p.PnL.StringFixed(2), p.WinRate)
	}

	fmt.Fprintln(w, "\n-- Instruments --")
	for _, p := range d.Instruments.Performance {
		fmt.Fprintf(w, "%-22s %s (%.1f%% win)\n", p.Name+":", p.PnL.StringFixed(2), p.WinRate)
	}

	fmt.Fprintln(w, "==========================")
}

// WriteCalendar prints a month grid with each trading day's P/L.
func WriteCalendar(w io.Writer, grid *MonthGrid) {
	fmt.Fprintf(w, "===== %s =====\n", grid.Title)
	for _, wd := range grid.Weekdays {
		fmt.Fprintf(w, "%10s", wd)
	}
	fmt.Fprintln(w)

	for _, week := range grid.Weeks {
		for _, cell := range week {
			if !cell.InMonth {
				fmt.Fprintf(w, "%10s", ".")
				continue
			}
			fmt.Fprintf(w, "%10d", cell.Day)
		}
		fmt.Fprintln(w)
		for _, cell := range week {
			if !cell.InMonth || cell.Summary == nil {
				fmt.Fprintf(w, "%10s", "")
				continue
			}
			fmt.Fprintf(w, "%10s", cell.Summary.Profit.StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Month P/L:             %s\n", grid.Profit.StringFixed(2))
	fmt.Fprintf(w, "Trades:                %d\n", grid.Trades)
	fmt.Fprintf(w, "Trading Days:          %d\n", grid.TradingDays)
}

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradertrackr/internal/models"
	"tradertrackr/internal/observability"
)

// ErrUnauthenticated is returned when no user is attached to a request.
var ErrUnauthenticated = errors.New("no authenticated user")

// DataAccessError wraps a failed trade fetch. No partial statistics are produced with it.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed (%s): %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves a user's trades.
type Fetcher interface {
	List(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error)
}

// Dashboard is the full set of statistics for one timeframe.
type Dashboard struct {
	Timeframe   Timeframe     `json:"timeframe"`
	Metrics     Metrics       `json:"metrics"`
	PnL         []Bucket      `json:"pnl"`
	Equity      []EquityPoint `json:"equity"`
	Instruments Breakdown     `json:"instruments"`
	Strategies  Breakdown     `json:"strategies"`
	Excluded    int           `json:"excluded_trades"`
}

// EmptyDashboard returns the zero state for a timeframe with every sequence empty.
func EmptyDashboard(tf Timeframe) *Dashboard {
	return &Dashboard{
		Timeframe:   tf,
		Metrics:     ComputeMetrics(nil),
		PnL:         make([]Bucket, 0),
		Equity:      make([]EquityPoint, 0),
		Instruments: breakdown(nil, nil),
		Strategies:  breakdown(nil, nil),
	}
}

// Engine fetches trades and runs the aggregators over them.
type Engine struct {
	fetcher   Fetcher
	logger    *zap.Logger
	now       func() time.Time
	loc       *time.Location
	weekStart time.Weekday
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall-clock source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the location used for calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithWeekStart sets the first column of the calendar grid.
func WithWeekStart(day time.Weekday) Option {
	return func(e *Engine) { e.weekStart = day }
}

// NewEngine creates an Engine reading trades from fetcher.
func NewEngine(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		logger:    logger.Named("analytics"),
		now:       time.Now,
		loc:       time.Local,
		weekStart: time.Sunday,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the engine's calendar location.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now returns the current time in the engine's location.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// Dashboard fetches the user's trades for the timeframe and computes all statistics from
// that single snapshot.
func (e *Engine) Dashboard(ctx context.Context, userID string, tf Timeframe) (*Dashboard, error) {
	if userID == "" {
		return nil, &DataAccessError{Op: "authenticate", Err: ErrUnauthenticated}
	}

	now := e.Now()
	filter := tf.Filter(now)
	trades, err := e.fetcher.List(ctx, userID, filter)
	if err != nil {
		return nil, &DataAccessError{Op: "list trades", Err: err}
	}
	trades = matching(trades, filter)

	d := e.Compute(trades, tf, now)
	observability.RecordDashboard(string(tf))
	e.logger.Debug("Dashboard computed",
		zap.String("user_id", userID),
		zap.String("timeframe", string(tf)),
		zap.Int("trades", len(trades)))
	return d, nil
}

// Compute runs every aggregator over one snapshot of trades.
func (e *Engine) Compute(trades []models.Trade, tf Timeframe, now time.Time) *Dashboard {
	excluded := e.excludeUndated(trades)

	return &Dashboard{
		Timeframe:   tf,
		Metrics:     ComputeMetrics(trades),
		PnL:         GroupByTimeframe(trades, tf, now, e.loc),
		Equity:      BuildEquityCurve(trades),
		Instruments: BreakdownByInstrument(trades),
		Strategies:  BreakdownByStrategy(trades),
		Excluded:    excluded,
	}
}

// Calendar fetches the user's full history and lays out the month at cursor.
func (e *Engine) Calendar(ctx context.Context, userID string, cursor MonthCursor) (*MonthGrid, error) {
	if userID == "" {
		return nil, &DataAccessError{Op: "authenticate", Err: ErrUnauthenticated}
	}

	trades, err := e.fetcher.List(ctx, userID, models.TradeFilter{})
	if err != nil {
		return nil, &DataAccessError{Op: "list trades", Err: err}
	}

	grid := BuildMonthGrid(cursor, AggregateCalendar(trades, e.loc), e.weekStart, e.loc)
	grid.Excluded = e.excludeUndated(trades)
	observability.RecordCalendar()
	return &grid, nil
}

// excludeUndated counts the trades the time-based views skip and reports them.
func (e *Engine) excludeUndated(trades []models.Trade) int {
	_, excluded := chronological(trades)
	if excluded > 0 {
		e.logger.Warn("Trades without entry date excluded from time views", zap.Int("count", excluded))
		observability.RecordMalformedTrades(excluded)
	}
	return excluded
}

// matching keeps the trades inside the filter; remote stores may return rows outside the window.
func matching(trades []models.Trade, filter models.TradeFilter) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

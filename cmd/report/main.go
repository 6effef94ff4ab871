package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"tradertrackr/internal/analytics"
	"tradertrackr/internal/backend"
	"tradertrackr/internal/bootstrap"
	"tradertrackr/internal/config"
	"tradertrackr/internal/export"
	"tradertrackr/internal/logger"
	"tradertrackr/internal/models"
)

type options struct {
	configDir string
	userID    string
	timeframe string
	month     string
	csvPath   string
	token     string
	timeout   time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "config", "./configs", "Directory containing config.yml")
	flag.StringVar(&opts.userID, "user", "", "User id to report on (required)")
	flag.StringVar(&opts.timeframe, "timeframe", "all", "Timeframe: 7days, 30days, 90days, year, all")
	flag.StringVar(&opts.month, "month", "", "Also print the calendar for a month (YYYY-MM)")
	flag.StringVar(&opts.csvPath, "csv", "", "Write the timeframe's trades to this CSV file")
	flag.StringVar(&opts.token, "token", "", "Session token for the backend store")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if opts.userID == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}
}

// run builds the report. Everything it opens is closed before it returns.
func run(opts options) error {
	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger("report", cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	loc, err := cfg.Analytics.Location()
	if err != nil {
		return fmt.Errorf("invalid analytics timezone: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.token != "" {
		ctx = backend.WithAccessToken(ctx, opts.token)
	}

	repo, closeRepo, err := bootstrap.NewRepository(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize trade store: %w", err)
	}
	defer closeRepo()

	engine := analytics.NewEngine(repo, log,
		analytics.WithLocation(loc),
		analytics.WithWeekStart(cfg.Analytics.FirstWeekday()),
	)

	tf := analytics.ParseTimeframe(opts.timeframe)
	now := engine.Now()
	trades, err := repo.List(ctx, opts.userID, tf.Filter(now))
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}
	analytics.WriteReport(os.Stdout, engine.Compute(trades, tf, now))

	if opts.month != "" {
		if err := printCalendar(ctx, engine, opts.userID, opts.month, loc); err != nil {
			return fmt.Errorf("failed to build calendar: %w", err)
		}
	}

	if opts.csvPath != "" {
		if err := writeCSV(opts.csvPath, trades); err != nil {
			return fmt.Errorf("failed to export trades: %w", err)
		}
		log.Info("Trades exported", zap.String("path", opts.csvPath), zap.Int("count", len(trades)))
	}
	return nil
}

func printCalendar(ctx context.Context, engine *analytics.Engine, userID, month string, loc *time.Location) error {
	t, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", month, err)
	}
	grid, err := engine.Calendar(ctx, userID, analytics.CursorFor(t))
	if err != nil {
		return err
	}
	fmt.Println()
	analytics.WriteCalendar(os.Stdout, grid)
	return nil
}

func writeCSV(path string, trades []models.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	return export.WriteTradesCSV(f, trades)
}

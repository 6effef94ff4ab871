package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradertrackr/internal/analytics"
	"tradertrackr/internal/api"
	"tradertrackr/internal/bootstrap"
	"tradertrackr/internal/config"
	"tradertrackr/internal/dashboard"
	"tradertrackr/internal/logger"
	"tradertrackr/internal/otp"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger("tradertrackr", cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be set")
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		log.Fatal("Invalid analytics timezone", zap.String("timezone", cfg.Analytics.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Trade storage
	repo, closeRepo, err := bootstrap.NewRepository(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize trade store", zap.Error(err))
	}
	defer closeRepo()

	// One-time code cache
	codeStore, closeCache, err := bootstrap.NewCodeStore(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer closeCache()

	decimal.MarshalJSONWithoutQuotes = true
	gin.SetMode(cfg.Server.Mode)

	weekStart := cfg.Analytics.FirstWeekday()
	engine := analytics.NewEngine(repo, log,
		analytics.WithLocation(loc),
		analytics.WithWeekStart(weekStart),
	)
	codes := otp.NewService(codeStore, otp.NewLogNotifier(log), cfg.OTP, log)
	handler := api.NewHandler(repo, engine, codes, dashboard.NewHandler(engine, log, nil), weekStart, log)
	server := api.NewServer(cfg.Server, api.NewRouter(handler, []byte(cfg.Auth.JWTSecret), log), log)

	serverErr := server.Start()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigchan:
		log.Info("Shutdown signal received, gracefully shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}

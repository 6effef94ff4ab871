// Package bootstrap builds the storage components shared by the server and the CLI tools.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"tradertrackr/internal/backend"
	"tradertrackr/internal/cache"
	"tradertrackr/internal/config"
	"tradertrackr/internal/database"
	"tradertrackr/internal/store"
)

// NewRepository returns the trade repository selected by the configuration: the managed
// backend REST API when enabled, otherwise the local database. The returned close function
// releases any held connections.
func NewRepository(cfg config.Config, log *zap.Logger) (store.TradeRepository, func(), error) {
	if cfg.Backend.Enabled {
		log.Info("Using backend trade store", zap.String("url", cfg.Backend.URL))
		return backend.NewClient(&cfg.Backend, log), func() {}, nil
	}

	db, err := database.NewDatabase(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.NewSQLStore(db), closeFn, nil
}

// NewCodeStore returns a redis-backed cache when an address is configured, otherwise an
// in-process one.
func NewCodeStore(ctx context.Context, cfg config.Redis, log *zap.Logger) (cache.Store, func(), error) {
	if cfg.Addr == "" {
		log.Info("Using in-memory cache")
		return cache.NewMemoryStore(), func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
}

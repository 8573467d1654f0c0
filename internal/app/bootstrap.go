package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// Runtime bundles the long-lived dependencies shared by the binaries.
type Runtime struct {
	Config    *Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *observability.Metrics
	Cache     *analytics.Cache
	Analytics *analytics.Service
}

// Bootstrap connects PostgreSQL and Redis and builds the analytics service.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if _, err := db.Migrate(ctx, pool, migrate.Up, 0); err != nil {
			pool.Close()
			return nil, err
		}
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsCache.OnLookup(metrics.ObserveCacheLookup)
	service := analytics.NewService(
		analytics.NewRepository(pool),
		analyticsCache,
		analytics.WithLogger(logger.With(slog.String("component", "analytics"))),
		analytics.WithThresholds(cfg.Thresholds()),
	)
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Redis:     redisClient,
		Metrics:   metrics,
		Cache:     analyticsCache,
		Analytics: service,
	}, nil
}

// Close releases the connections opened by Bootstrap.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
	return errors.Join(errs...)
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/internal/storage/postgres"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/pkg/database"
)

// purgeInterval is how often expired postgres slots are deleted.
const purgeInterval = 10 * time.Minute

// slotBackend is the storage selected by STORAGE_DRIVER.
type slotBackend struct {
	store   storage.Store
	watcher storage.Watcher

	// purge, when set, deletes expired slots.
	purge func(ctx context.Context) (int64, error)
	close func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*slotBackend, error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		rcfg := database.DefaultRedisConfig()
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPass
		rcfg.DB = cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return &slotBackend{
			store:   redisstore.NewStore(rdb, cfg.SlotTTL()),
			watcher: redisstore.NewWatcher(rdb, logger),
			close: func() {
				if err := rdb.Close(); err != nil {
					logger.Error("redis close error", slog.String("error", err.Error()))
				}
			},
		}, nil

	case config.StoragePostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPassword
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSLMode

		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "storefront"); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		store := postgres.NewStore(pool, cfg.SlotTTL())
		b := &slotBackend{
			store: store,
			// Postgres has no change feed; tabs of a session share this process.
			watcher: memory.NewWatcher(),
			close:   pool.Close,
		}
		if cfg.SlotTTL() > 0 {
			b.purge = store.PurgeExpired
		}
		return b, nil

	case config.StorageMemory:
		logger.Warn("using in-memory slot storage; state is lost on restart")
		return &slotBackend{
			store:   memory.NewStore(),
			watcher: memory.NewWatcher(),
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// runPurge periodically deletes expired slots until ctx is canceled.
func runPurge(ctx context.Context, purge func(context.Context) (int64, error), logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				logger.Error("slot purge error", slog.String("error", err.Error()))
			} else if n > 0 {
				logger.Info("expired slots purged", slog.Int64("deleted", n))
			}
		}
	}
}

// Package bootstrap opens the storage backend and Redis for the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ideon/internal/cache"
	"ideon/internal/config"
	"ideon/internal/database"
	"ideon/internal/observability"
	"ideon/internal/persistence"
	"ideon/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Runtime is the opened persistence backend plus the optional Redis client
// used for events and rate limiting.
type Runtime struct {
	KV    persistence.KV
	Redis *redis.Client

	closers []func() error
}

// InitRuntime connects the KV selected by STORAGE_DRIVER. Redis is dialed
// for every driver; outside the redis driver an unreachable Redis only
// disables events and rate limiting.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	b := &Runtime{}
	b.Redis = cache.Connect(ctx, cfg.RedisURL)
	if b.Redis != nil {
		b.closers = append(b.closers, b.Redis.Close)
	}

	switch cfg.StorageDriver {
	case config.StorageMemory:
		b.KV = persistence.NewMemoryKV()
	case config.StorageRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("redis storage driver selected but %s is unreachable", cfg.RedisURL)
		}
		b.KV = cache.NewStore(b.Redis)
	case config.StorageSQLite, config.StoragePostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			b.closers = append(b.closers, sqlDB.Close)
		}
		b.KV = database.NewStore(db, cfg.StorageDriver)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	return b, nil
}

// Close releases connections in reverse order of opening.
func (b *Runtime) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// SeedFallback hydrates from the embedded starter dataset.
func SeedFallback() (*persistence.Snapshot, error) {
	ds, err := seed.Load(time.Now())
	if err != nil {
		return nil, err
	}
	observability.GlobalLogger.Info("using starter dataset",
		slog.Int("users", len(ds.Users)),
		slog.Int("ideas", len(ds.Ideas)),
	)
	return &persistence.Snapshot{Users: ds.Users, Ideas: ds.Ideas}, nil
}

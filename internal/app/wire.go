package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"blog/internal/cache"
	"blog/internal/db"
	"blog/internal/store"
	"blog/internal/store/memory"
	"blog/internal/store/postgres"
)

// CachePrefix namespaces the page cache keys in Redis.
const CachePrefix = "blog:"

// OpenStore returns the in-process store for memory:// and a migrated
// Postgres store otherwise.
func OpenStore(ctx context.Context, cfg Config, log logrus.FieldLogger) (store.Store, error) {
	if cfg.UseMemoryStore() {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(conn.DB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready")
	return postgres.New(conn), nil
}

// OpenCache returns a Redis cache when REDIS_ADDR is set and an in-process
// one otherwise. Both expire entries after CacheTTL.
func OpenCache(ctx context.Context, cfg Config, log logrus.FieldLogger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.CacheTTL), nil
	}
	client, err := cache.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("page cache on redis")
	return cache.NewRedis(client, CachePrefix, cfg.CacheTTL), nil
}

package kv

import (
	"context"
	"fmt"

	"github.com/Skufu/vitreos/internal/config"
)

// RedisKeyPrefix namespaces every key written to a shared Redis database.
const RedisKeyPrefix = "vitreos:"

// Open builds the backend selected by cfg.StoreBackend. The returned closer
// is never nil.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryStore(), func() {}, nil
	case config.BackendSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendPostgres:
		s, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		return s, s.Close, nil
	case config.BackendRedis:
		s := NewRedisStore(NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), RedisKeyPrefix)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

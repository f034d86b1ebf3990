// Package kv provides the durable key-value storage the profile store
// persists through. Backends: in-memory, SQLite, Postgres and Redis.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal key-value contract. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// HealthChecker is implemented by backends that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

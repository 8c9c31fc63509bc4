// Package cache stores JSON-encoded values under string keys with a TTL.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get decodes the value stored under key into dest and reports whether
	// the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}

package cache

import (
	"context"
	"time"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is the key-value backend behind the cache. Get reports a miss
// with types.ErrCacheMiss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes every live key starting with prefix and returns how many.
	Clear(ctx context.Context, prefix string) (int, error)
	Count(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Backend() string
}

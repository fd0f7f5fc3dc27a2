package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

type Options struct {
	RedisURL         string
	PingTimeout      time.Duration
	PingRetries      uint64
	MemoryMaxEntries int
}

// Connect returns a Redis store when the server answers a ping, and the
// bounded in-memory store otherwise. It never fails on Redis errors.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if opts.RedisURL != "" {
		if store, ok := connectRedis(ctx, opts, logger); ok {
			return store, nil
		}
	}
	logger.WarnContext(ctx, "Using in-memory cache, Redis unavailable",
		slog.Int("max_entries", opts.MemoryMaxEntries))
	mem, err := NewMemoryStore(opts.MemoryMaxEntries)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

func connectRedis(ctx context.Context, opts Options, logger *slog.Logger) (*RedisStore, bool) {
	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.WarnContext(ctx, "Invalid Redis URL", slog.Any("error", err))
		return nil, false
	}
	client := redis.NewClient(redisOpts)
	store := NewRedisStore(client)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	backoff := retry.WithMaxRetries(opts.PingRetries, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			logger.DebugContext(ctx, "Redis ping failed", slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.WarnContext(ctx, "Redis not reachable", slog.String("addr", redisOpts.Addr), slog.Any("error", err))
		_ = client.Close()
		return nil, false
	}
	logger.InfoContext(ctx, "Connected to Redis cache", slog.String("addr", redisOpts.Addr))
	return store, true
}

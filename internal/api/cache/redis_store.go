package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const scanBatch = 100

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", types.ErrCacheUnavailable, key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", types.ErrCacheUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, prefix string) (int, error) {
	removed := 0
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, globEscape(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("%w: redis del: %v", types.ErrCacheUnavailable, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: redis scan: %v", types.ErrCacheUnavailable, err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("%w: redis del: %v", types.ErrCacheUnavailable, err)
	}
	return removed, nil
}

func (s *RedisStore) Count(ctx context.Context, prefix string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, globEscape(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("%w: redis scan: %v", types.ErrCacheUnavailable, err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", types.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Backend() string { return BackendRedis }

func (s *RedisStore) Close() error { return s.client.Close() }

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string { return globReplacer.Replace(s) }

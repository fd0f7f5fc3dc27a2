package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const DefaultKeyPrefix = "alpine:session:"

var _ Store = (*RedisStore)(nil)

// RedisStore stores each session as a JSON document with the session
// timeout as TTL, refreshed on every write.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, timeout time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisStore{client: client, prefix: prefix, timeout: timeout}
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + sessionID }

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session %s: %v", types.ErrCacheUnavailable, sessionID, err)
	}
	var state types.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if state.FilledSlots == nil {
		state.FilledSlots = map[string]string{}
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, state *types.ConversationState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("%w: session state without id", types.ErrInvalidContext)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.SessionID, err)
	}
	if err := s.client.Set(ctx, s.key(state.SessionID), raw, s.timeout).Err(); err != nil {
		return fmt.Errorf("%w: put session %s: %v", types.ErrCacheUnavailable, state.SessionID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: delete session %s: %v", types.ErrCacheUnavailable, sessionID, err)
	}
	return nil
}

func (s *RedisStore) Backend() string { return "redis" }

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process; entries expire after the session
// timeout counted from their last write.
type MemoryStore struct {
	sessions *cache.Cache
	timeout  time.Duration
}

func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MemoryStore{
		sessions: cache.New(timeout, 0),
		timeout:  timeout,
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*types.ConversationState, error) {
	v, found := s.sessions.Get(sessionID)
	if !found {
		return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	return v.(*types.ConversationState).Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, state *types.ConversationState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("%w: session state without id", types.ErrInvalidContext)
	}
	s.sessions.Set(state.SessionID, state.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

func (s *MemoryStore) Backend() string { return "memory" }

// Len reports the number of stored sessions, expired ones included.
// Expired entries are only dropped when read, overwritten or deleted.
func (s *MemoryStore) Len() int { return s.sessions.ItemCount() }

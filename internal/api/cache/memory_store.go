package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

// DefaultMemoryEntries bounds the in-process fallback.
const DefaultMemoryEntries = 1000

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a bounded LRU where every entry carries its own expiry.
type MemoryStore struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memoryEntry]
	now func() time.Time
}

func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	c, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryStore{lru: c, now: time.Now}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return nil, types.ErrCacheMiss
	}
	if e.expired(s.now()) {
		s.lru.Remove(key)
		return nil, types.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.lru.Add(key, e)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, key := range s.lru.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e, ok := s.lru.Peek(key)
		if ok && !e.expired(now) {
			removed++
		}
		s.lru.Remove(key)
	}
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, key := range s.lru.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e, ok := s.lru.Peek(key); ok && !e.expired(now) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Backend() string { return BackendMemory }

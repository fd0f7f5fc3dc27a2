// Package cache is the advisory response cache. Every failure is logged
// and swallowed; callers only ever see a hit or a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/alpine-guide/app/observability/metrics"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const DefaultKeyPrefix = "alpine"

// Key namespaces, one per cached operation.
const (
	PrefixIntent   = "intent"
	PrefixSlots    = "slots"
	PrefixResponse = "response"
	PrefixPOI      = "rag"
	PrefixWeather  = "weather"
)

type Stats struct {
	Backend    string `json:"backend"`
	Keys       int    `json:"keys"`
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	Writes     int64  `json:"writes"`
	Failures   int64  `json:"failures"`
	HitRatePct int    `json:"hit_rate_pct"`
}

type Health struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

type Manager struct {
	store     Store
	ttl       TTLPolicy
	keyPrefix string
	logger    *slog.Logger

	hits, misses, writes, failures atomic.Int64
}

func NewManager(store Store, ttl TTLPolicy, keyPrefix string, logger *slog.Logger) *Manager {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Manager{store: store, ttl: ttl, keyPrefix: keyPrefix, logger: logger}
}

func (m *Manager) Backend() string { return m.store.Backend() }

// TTL returns the lifetime for category, logging when the fallback applies.
func (m *Manager) TTL(category string) time.Duration {
	if !m.ttl.IsMapped(category) {
		m.logger.Debug("No TTL configured for cache category, using default",
			slog.String("category", category), slog.Duration("ttl", m.ttl.Fallback()))
	}
	return m.ttl.For(category)
}

// Key builds "<keyPrefix>:<prefix>:<fingerprint>".
func (m *Manager) Key(prefix string, fields map[string]any) string {
	return fmt.Sprintf("%s:%s:%s", m.keyPrefix, prefix, Fingerprint(fields))
}

// GetJSON decodes a cached value into dst and reports whether it was a hit.
func (m *Manager) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, types.ErrCacheMiss) {
			m.record(ctx, key, "miss")
			m.misses.Add(1)
			return false
		}
		m.failures.Add(1)
		m.record(ctx, key, "error")
		m.logger.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.failures.Add(1)
		m.record(ctx, key, "error")
		m.logger.WarnContext(ctx, "Cached value could not be decoded", slog.String("key", key), slog.Any("error", err))
		return false
	}
	m.hits.Add(1)
	m.record(ctx, key, "hit")
	return true
}

// SetJSON stores v under key. Failures are logged and otherwise ignored.
func (m *Manager) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.failures.Add(1)
		m.logger.WarnContext(ctx, "Cache value could not be encoded", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := m.store.Set(ctx, key, raw, ttl); err != nil {
		m.failures.Add(1)
		m.logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	m.writes.Add(1)
	m.logger.DebugContext(ctx, "Cache entry stored", slog.String("key", key), slog.Duration("ttl", ttl))
}

// Clear removes the entries of one namespace, or all entries when prefix
// is empty, and returns how many were removed.
func (m *Manager) Clear(ctx context.Context, prefix string) (int, error) {
	full := m.keyPrefix + ":"
	if prefix = strings.Trim(prefix, ": "); prefix != "" {
		full += prefix + ":"
	}
	n, err := m.store.Clear(ctx, full)
	if err != nil {
		m.logger.WarnContext(ctx, "Cache clear failed", slog.String("prefix", full), slog.Any("error", err))
		return n, err
	}
	m.logger.InfoContext(ctx, "Cache cleared", slog.String("prefix", full), slog.Int("removed", n))
	return n, nil
}

func (m *Manager) Stats(ctx context.Context) Stats {
	s := Stats{
		Backend:  m.store.Backend(),
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Writes:   m.writes.Load(),
		Failures: m.failures.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatePct = int(s.Hits * 100 / total)
	}
	if n, err := m.store.Count(ctx, m.keyPrefix+":"); err == nil {
		s.Keys = n
	} else {
		m.logger.WarnContext(ctx, "Cache key count failed", slog.Any("error", err))
	}
	return s
}

func (m *Manager) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", Backend: m.store.Backend()}
	if err := m.store.Ping(ctx); err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}
	if m.store.Backend() == BackendMemory {
		h.Status = "degraded"
	}
	return h
}

func (m *Manager) record(ctx context.Context, key, result string) {
	metrics.Get().CacheRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("prefix", namespaceOf(key)),
		attribute.String("result", result),
	))
}

func namespaceOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return "unknown"
	}
	return parts[1]
}

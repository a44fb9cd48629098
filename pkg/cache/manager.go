package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manager stores Alma responses in Redis. Entries are kept past their
// expiry for RevalidateWindow so they can still be revalidated with a
// conditional request.
type Manager struct {
	redis            redis.Cmdable
	RevalidateWindow time.Duration
}

// NewManager creates a new cache manager with a Redis backend.
func NewManager(redisClient redis.Cmdable) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:            redisClient,
		RevalidateWindow: time.Hour,
	}
}

// Get retrieves a cache entry by key. Expired entries are still returned
// while inside the revalidation window; callers check IsExpired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			ResponseCacheRequests.WithLabelValues("miss").Inc()
			return nil, ErrCacheMiss
		}
		ResponseCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		ResponseCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		ResponseCacheRequests.WithLabelValues("stale").Inc()
	} else {
		ResponseCacheRequests.WithLabelValues("hit").Inc()
	}
	return &entry, nil
}

// Set stores an entry until its expiry plus the revalidation window.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL() + m.RevalidateWindow
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		ResponseCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		ResponseCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		ResponseCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends an entry after a 304 Not Modified response.
func (m *Manager) Refresh(ctx context.Context, key Key, entry *Entry, expires time.Time) error {
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores serialized lookup results keyed by make/model/year.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}

// RedisCache backs the cache with a redis instance.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the given address. A zero ttl stores entries
// without expiry.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// MemoryCache is a process-local cache used in tests and single-instance
// deployments without redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.entries[key]
	return val, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// CachedSource decorates a Source with a Cache. Only successful lookups are
// cached; failures always go back to the underlying source.
type CachedSource struct {
	source Source
	cache  Cache
	logger *zap.Logger
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source Source, cache Cache, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{source: source, cache: cache, logger: logger}
}

func (c *CachedSource) Lookup(ctx context.Context, vehicleMake, model string, year int) (*Vehicle, error) {
	key := cacheKey(vehicleMake, model, year)

	if raw, ok := c.cache.Get(ctx, key); ok {
		var v Vehicle
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return &v, nil
		}
		// Corrupt entry; fall through to the source and overwrite it.
		c.logger.Warn("discarding unreadable catalog cache entry",
			zap.String("op", "catalog.CachedSource.Lookup"),
			zap.String("key", key),
		)
	}

	v, err := c.source.Lookup(ctx, vehicleMake, model, year)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog cache entry: %w", err)
	}
	if err := c.cache.Set(ctx, key, string(raw)); err != nil {
		c.logger.Warn("failed to write catalog cache entry",
			zap.String("op", "catalog.CachedSource.Lookup"),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return v, nil
}

func cacheKey(vehicleMake, model string, year int) string {
	return strings.ToLower(fmt.Sprintf("vehicle:%s:%s:%d", vehicleMake, model, year))
}

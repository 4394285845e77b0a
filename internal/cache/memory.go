package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"Users_Cache/internal/models"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache implements Service using an in-process TTL cache
type MemoryCache struct {
	items     *ttlcache.Cache[string, []byte]
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache and starts its expiry loop
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		items: ttlcache.New[string, []byte](
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}

	go cache.items.Start()

	return cache
}

// Get retrieves a cached value for the given key
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item := m.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, models.ErrCacheMiss
	}

	return append([]byte(nil), item.Value()...), nil
}

// Set stores a value in the cache with the specified TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	m.items.Set(key, data, ttl)
	return nil
}

// Delete removes an entry from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	item, present := m.items.GetAndDelete(key)
	return present && !item.IsExpired(), nil
}

// Ping always succeeds for the in-process store
func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Size returns the current number of cached entries (for monitoring)
func (m *MemoryCache) Size() int {
	return m.items.Len()
}

// Close stops the expiry loop
func (m *MemoryCache) Close() error {
	m.closeOnce.Do(m.items.Stop)
	return nil
}

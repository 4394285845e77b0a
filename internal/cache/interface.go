package cache

import (
	"context"
	"time"
)

// Service defines the store adapter the cache service forwards to.
// External packages should use this interface, not the concrete implementations.
// Get returns models.ErrCacheMiss when the key is absent or expired.
type Service interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// Pinger is implemented by stores that can report their own health
type Pinger interface {
	Ping(ctx context.Context) error
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Users_Cache/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Service using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis-based cache
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Get retrieves the raw JSON stored under key
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return data, nil
}

// Set stores a value in Redis with the specified TTL
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Delete removes an entry from Redis and reports whether one existed
func (r *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete failed: %w", err)
	}
	return removed > 0, nil
}

// Ping checks that Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

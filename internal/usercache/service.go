// Package usercache applies the fixed TTL policy and the error contract
// on top of a cache store.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Users_Cache/internal/cache"
	"Users_Cache/internal/logger"
	"Users_Cache/internal/models"

	"github.com/samber/mo"
)

const (
	// EntryTTLSeconds is the lifetime of every entry written by Save
	EntryTTLSeconds = 3600

	// EntryTTL is EntryTTLSeconds as a duration
	EntryTTL = EntryTTLSeconds * time.Second

	// ProbeReply is the fixed acknowledgement returned by Probe
	ProbeReply = "hola"

	// SavedReply confirms a successful Save
	SavedReply = "user saved in cache"
)

var errStoredValueNotJSON = errors.New("stored value is not valid JSON")

type service struct {
	store  cache.Service
	logger logger.Service
}

// NewService creates the cache access service over store
func NewService(store cache.Service, logger logger.Service) Service {
	return &service{
		store:  store,
		logger: logger,
	}
}

// Probe never touches the store
func (s *service) Probe() string {
	return ProbeReply
}

// Save writes value under key with EntryTTL, replacing any previous entry
func (s *service) Save(ctx context.Context, key models.CacheKey, value json.RawMessage) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, string(key), value, EntryTTL); err != nil {
		return "", s.storeFailure(ctx, logger.OpSaveCache, key, err)
	}

	s.logger.LogSuccess(ctx, logger.OpSaveCache, string(key), "Entry saved in cache", map[string]interface{}{
		"ttl_seconds": EntryTTLSeconds,
	})
	return SavedReply, nil
}

// Get returns the stored value, or None when the key is absent or expired
func (s *service) Get(ctx context.Context, key models.CacheKey) (mo.Option[json.RawMessage], error) {
	if err := validateKey(key); err != nil {
		return mo.None[json.RawMessage](), err
	}

	data, err := s.store.Get(ctx, string(key))
	if err != nil {
		if errors.Is(err, models.ErrCacheMiss) {
			s.logger.LogInfo(ctx, logger.OpGetCache, "Cache miss", map[string]interface{}{"cache_key": string(key)})
			return mo.None[json.RawMessage](), nil
		}
		return mo.None[json.RawMessage](), s.storeFailure(ctx, logger.OpGetCache, key, err)
	}

	// the store is shared, so its bytes may not be JSON we wrote
	if !json.Valid(data) {
		err := fmt.Errorf("failed to unmarshal value: %w", errStoredValueNotJSON)
		return mo.None[json.RawMessage](), s.storeFailure(ctx, logger.OpGetCache, key, err)
	}

	s.logger.LogSuccess(ctx, logger.OpGetCache, string(key), "Cache hit", map[string]interface{}{
		"value": string(data),
	})
	return mo.Some(json.RawMessage(data)), nil
}

// Delete removes key and reports whether a live entry was removed
func (s *service) Delete(ctx context.Context, key models.CacheKey) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	removed, err := s.store.Delete(ctx, string(key))
	if err != nil {
		return false, s.storeFailure(ctx, logger.OpDeleteCache, key, err)
	}

	s.logger.LogSuccess(ctx, logger.OpDeleteCache, string(key), "Entry deleted from cache", map[string]interface{}{
		"removed": removed,
	})
	return removed, nil
}

// storeFailure logs err and replaces it with its normalized shape
func (s *service) storeFailure(ctx context.Context, operation string, key models.CacheKey, err error) error {
	s.logger.LogError(ctx, operation, string(key), "Cache store call failed", err, models.LogSeverityMedium, nil)
	return models.NewBadRequestError(err)
}

func validateKey(key models.CacheKey) error {
	if key == "" {
		return models.NewRPCError(http.StatusBadRequest, "id is required")
	}
	return nil
}

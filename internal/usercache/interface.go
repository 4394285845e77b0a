package usercache

import (
	"context"
	"encoding/json"

	"Users_Cache/internal/models"

	"github.com/samber/mo"
)

// Service is the cache access contract exposed to the RPC layer.
// Every error it returns is a *models.RPCError.
type Service interface {
	Probe() string
	Save(ctx context.Context, key models.CacheKey, value json.RawMessage) (string, error)
	Get(ctx context.Context, key models.CacheKey) (mo.Option[json.RawMessage], error)
	Delete(ctx context.Context, key models.CacheKey) (bool, error)
}

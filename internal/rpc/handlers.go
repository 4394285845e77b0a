package rpc

import (
	"context"
	"encoding/json"

	"Users_Cache/internal/metrics"
	"Users_Cache/internal/models"
	"Users_Cache/internal/usercache"
)

// Handler contains the RPC command handlers
type Handler struct {
	service usercache.Service
	metrics *metrics.Prometheus
}

// NewHandler creates a new command handler
func NewHandler(service usercache.Service, prom *metrics.Prometheus) *Handler {
	return &Handler{
		service: service,
		metrics: prom,
	}
}

// Register binds every command pattern on router
func (h *Handler) Register(router *Router) {
	router.Handle(models.PatternTest, h.Test)
	router.Handle(models.PatternSaveCache, h.SaveCache)
	router.Handle(models.PatternGetCache, h.GetUserCache)
	router.Handle(models.PatternDelCache, h.DelUserCache)
}

// Test handles "test"; the payload is ignored
func (h *Handler) Test(_ context.Context, _ *Command) (interface{}, error) {
	return h.service.Probe(), nil
}

// SaveCache handles "saveCache" with payload {id, data}
func (h *Handler) SaveCache(ctx context.Context, cmd *Command) (interface{}, error) {
	var req models.SaveCacheRequest
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return nil, models.NewBadRequestError(err)
		}
	}

	value := req.Data
	if len(value) == 0 {
		value = nullResult
	}

	return h.service.Save(ctx, req.ID, value)
}

// GetUserCache handles "getUserCache"; an absent entry replies with null
func (h *Handler) GetUserCache(ctx context.Context, cmd *Command) (interface{}, error) {
	key, err := models.ParseKeyArgument(cmd.Data)
	if err != nil {
		return nil, models.NewBadRequestError(err)
	}

	value, err := h.service.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	data, ok := value.Get()
	if !ok {
		h.metrics.CacheMisses.Inc()
		return nil, nil
	}
	h.metrics.CacheHits.Inc()
	return data, nil
}

// DelUserCache handles "delUserCache" and replies whether a live entry was removed
func (h *Handler) DelUserCache(ctx context.Context, cmd *Command) (interface{}, error) {
	key, err := models.ParseKeyArgument(cmd.Data)
	if err != nil {
		return nil, models.NewBadRequestError(err)
	}

	return h.service.Delete(ctx, key)
}

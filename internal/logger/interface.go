package logger

import (
	"context"

	"Users_Cache/internal/models"
)

// Service defines the interface for application logging
// External packages should use this interface, not the concrete implementations
type Service interface {
	LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{})
	LogSuccess(ctx context.Context, operation, cacheKey, message string, metadata map[string]interface{})
	LogError(ctx context.Context, operation, cacheKey, message string, err error, severity models.LogSeverity, metadata map[string]interface{})
	Close() error
}

// DatabaseConnection defines the interface for database operations used by logger implementations
type DatabaseConnection interface {
	InsertLog(ctx context.Context, entry *models.LogEntry) error
	Close() error
	Ping(ctx context.Context) error
}

// Operation names shared by every backend
const (
	OpSaveCache      = "save_cache"
	OpGetCache       = "get_cache"
	OpDeleteCache    = "delete_cache"
	OpCommand        = "rpc_command"
	OpConnection     = "rpc_connection"
	OpRateLimited    = "rate_limited"
	OpPanicRecovery  = "panic_recovery"
	OpStoreInit      = "store_init"
	OpServerStart    = "server_start"
	OpServerShutdown = "server_shutdown"
	OpHealthCheck    = "health_check"
)

package logger

import (
	"context"

	"Users_Cache/internal/models"

	"go.uber.org/zap"
)

// ConsoleLogger implements the Service interface on top of zap
type ConsoleLogger struct {
	log *zap.Logger
}

// NewConsoleLogger wraps an existing zap logger
func NewConsoleLogger(log *zap.Logger) *ConsoleLogger {
	return &ConsoleLogger{log: log}
}

// NewProductionConsoleLogger builds a JSON logger writing to stderr
func NewProductionConsoleLogger() (*ConsoleLogger, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewConsoleLogger(log.Named("users-cache")), nil
}

// LogInfo logs an informational message
func (l *ConsoleLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	l.log.Info(message, l.fields(ctx, operation, "", metadata)...)
}

// LogSuccess logs a successful operation
func (l *ConsoleLogger) LogSuccess(ctx context.Context, operation, cacheKey, message string, metadata map[string]interface{}) {
	l.log.Info(message, l.fields(ctx, operation, cacheKey, metadata)...)
}

// LogError logs an error; high severity is reported at error level, the rest as warnings
func (l *ConsoleLogger) LogError(ctx context.Context, operation, cacheKey, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	fields := append(l.fields(ctx, operation, cacheKey, metadata),
		zap.String("severity", string(severity)),
		zap.Error(err),
	)

	if severity == models.LogSeverityHigh {
		l.log.Error(message, fields...)
		return
	}
	l.log.Warn(message, fields...)
}

// Close flushes buffered entries
func (l *ConsoleLogger) Close() error {
	// Sync on stderr returns EINVAL/ENOTTY on most terminals
	_ = l.log.Sync()
	return nil
}

func (l *ConsoleLogger) fields(ctx context.Context, operation, cacheKey string, metadata map[string]interface{}) []zap.Field {
	logEvent := GetLogEvent(ctx)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("process_id", logEvent.ProcessID),
		zap.String("process_type", string(logEvent.ProcessType)),
	}
	if cacheKey != "" {
		fields = append(fields, zap.String("cache_key", cacheKey))
	}
	if logEvent.ClientIP != "" {
		fields = append(fields, zap.String("client_ip", logEvent.ClientIP))
	}
	if len(metadata) > 0 {
		fields = append(fields, zap.Any("metadata", metadata))
	}
	return fields
}

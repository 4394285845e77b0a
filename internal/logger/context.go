package logger

import (
	"context"
	"time"

	"Users_Cache/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const logEventKey contextKey = "log_event"

// NewLogEvent creates a new log event for process tracking
func NewLogEvent(processType models.ProcessType, clientIP string) *models.LogEvent {
	return &models.LogEvent{
		ProcessID:   uuid.New().String(),
		ProcessType: processType,
		StartTime:   time.Now().UTC(),
		ClientIP:    clientIP,
	}
}

// WithLogEvent adds a log event to the context
func WithLogEvent(ctx context.Context, logEvent *models.LogEvent) context.Context {
	return context.WithValue(ctx, logEventKey, logEvent)
}

// GetLogEvent retrieves the log event from context.
// A fresh internal event is returned when none is attached.
func GetLogEvent(ctx context.Context) *models.LogEvent {
	if le, ok := ctx.Value(logEventKey).(*models.LogEvent); ok && le != nil {
		return le
	}
	return NewLogEvent(models.ProcessTypeInternal, "")
}

// NewCommandLogEvent creates a log event for one RPC command
func NewCommandLogEvent(clientIP string) *models.LogEvent {
	return NewLogEvent(models.ProcessTypeCommand, clientIP)
}

// NewInternalLogEvent creates a log event for internal processes
func NewInternalLogEvent() *models.LogEvent {
	return NewLogEvent(models.ProcessTypeInternal, "")
}

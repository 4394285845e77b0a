package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"Users_Cache/internal/models"

	"github.com/google/uuid"
)

// DatabaseLogger implements the Service interface using a database backend
type DatabaseLogger struct {
	db DatabaseConnection
}

// NewDatabaseLogger creates a new database logger
func NewDatabaseLogger(db DatabaseConnection) *DatabaseLogger {
	return &DatabaseLogger{
		db: db,
	}
}

// LogInfo logs an informational message (no severity)
func (l *DatabaseLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, "", message, nil, metadata)
}

// LogSuccess logs a successful operation (no severity)
func (l *DatabaseLogger) LogSuccess(ctx context.Context, operation, cacheKey, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, cacheKey, message, nil, metadata)
}

// LogError logs an error with required severity
func (l *DatabaseLogger) LogError(ctx context.Context, operation, cacheKey, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	l.logEntry(ctx, severity, operation, cacheKey, message, err, metadata)
}

func (l *DatabaseLogger) logEntry(ctx context.Context, severity models.LogSeverity, operation, cacheKey, message string, err error, metadata map[string]interface{}) {
	entry := buildEntry(ctx, severity, operation, cacheKey, message, err, metadata)

	// Insert asynchronously so a slow database never delays a command
	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.db.InsertLog(logCtx, entry); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to insert log entry: %v\n", err)
		}
	}()
}

// Close closes the logger and its database connection
func (l *DatabaseLogger) Close() error {
	return l.db.Close()
}

func buildEntry(ctx context.Context, severity models.LogSeverity, operation, cacheKey, message string, err error, metadata map[string]interface{}) *models.LogEntry {
	logEvent := GetLogEvent(ctx)

	entry := &models.LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Severity:    severity,
		Message:     message,
		Operation:   operation,
		CacheKey:    cacheKey,
		ProcessID:   logEvent.ProcessID,
		ProcessType: logEvent.ProcessType,
		ClientIP:    logEvent.ClientIP,
		Metadata:    metadata,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	return entry
}

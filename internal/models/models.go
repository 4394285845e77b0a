package models

import (
	"encoding/json"
	"time"
)

// Command patterns understood by the RPC dispatcher
const (
	PatternTest      = "test"
	PatternSaveCache = "saveCache"
	PatternGetCache  = "getUserCache"
	PatternDelCache  = "delUserCache"
)

// SaveCacheRequest is the payload of a saveCache command
type SaveCacheRequest struct {
	ID   CacheKey        `json:"id"`
	Data json.RawMessage `json:"data"`
}

// KeyRequest is the payload of getUserCache and delUserCache in object form
type KeyRequest struct {
	ID CacheKey `json:"id"`
}

// HealthStatus is reported by the admin health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Probe     string    `json:"probe"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// LogSeverity represents the severity level of a log entry
type LogSeverity string

const (
	LogSeverityLow    LogSeverity = "low"
	LogSeverityMedium LogSeverity = "medium"
	LogSeverityHigh   LogSeverity = "high"
)

// ProcessType represents the type of process that created the log
type ProcessType string

const (
	ProcessTypeCommand  ProcessType = "command"
	ProcessTypeInternal ProcessType = "internal"
)

// LogEvent represents a process-specific logging context
type LogEvent struct {
	ProcessID   string      `json:"process_id"`
	ProcessType ProcessType `json:"process_type"`
	StartTime   time.Time   `json:"start_time"`
	ClientIP    string      `json:"client_ip,omitempty"`
}

// LogEntry represents a structured log entry for database storage
type LogEntry struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Severity    LogSeverity            `json:"severity,omitempty"`
	Message     string                 `json:"message"`
	Operation   string                 `json:"operation"`
	CacheKey    string                 `json:"cache_key,omitempty"`
	ProcessID   string                 `json:"process_id"`
	ProcessType ProcessType            `json:"process_type"`
	ClientIP    string                 `json:"client_ip,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

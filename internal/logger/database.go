package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Users_Cache/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConnection implements DatabaseConnection on a pgx pool
type PostgresConnection struct {
	pool *pgxpool.Pool
}

// NewPostgresConnection connects, pings and prepares the log table
func NewPostgresConnection(ctx context.Context, connectionString string) (*PostgresConnection, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	// Poolers in front of postgres reject cached prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	config.ConnConfig.StatementCacheCapacity = 0

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed on %s:%d: %w", config.ConnConfig.Host, config.ConnConfig.Port, err)
	}

	conn := &PostgresConnection{pool: pool}
	if err := conn.createTableIfNotExists(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	return conn, nil
}

func (p *PostgresConnection) createTableIfNotExists(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS cache_service_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			severity VARCHAR(10) CHECK (severity IN ('low', 'medium', 'high')),
			message TEXT NOT NULL,
			operation VARCHAR(100) NOT NULL,
			cache_key TEXT,
			process_id UUID NOT NULL,
			process_type VARCHAR(20) NOT NULL CHECK (process_type IN ('command', 'internal')),
			client_ip INET,
			error_details TEXT,
			metadata JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_cache_service_logs_timestamp ON cache_service_logs(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_cache_service_logs_operation ON cache_service_logs(operation);
		CREATE INDEX IF NOT EXISTS idx_cache_service_logs_process_id ON cache_service_logs(process_id);
		CREATE INDEX IF NOT EXISTS idx_cache_service_logs_cache_key ON cache_service_logs(cache_key) WHERE cache_key IS NOT NULL;
	`

	_, err := p.pool.Exec(ctx, query)
	return err
}

// InsertLog inserts a log entry into the database
func (p *PostgresConnection) InsertLog(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO cache_service_logs
		(id, timestamp, severity, message, operation, cache_key, process_id, process_type, client_ip, error_details, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(
		ctx, query,
		entry.ID,
		entry.Timestamp,
		nullable(string(entry.Severity)),
		entry.Message,
		entry.Operation,
		nullable(entry.CacheKey),
		entry.ProcessID,
		string(entry.ProcessType),
		nullable(entry.ClientIP),
		nullable(entry.Error),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

// Ping checks if the database connection is alive
func (p *PostgresConnection) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection pool
func (p *PostgresConnection) Close() error {
	p.pool.Close()
	return nil
}

// encodeMetadata renders metadata as a JSON string for the JSONB column
func encodeMetadata(metadata map[string]interface{}) (interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// nullable maps empty strings to SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

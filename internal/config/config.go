package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheTypeRedis  = "redis"
	CacheTypeMemory = "memory"
	CacheTypeBolt   = "bolt"
)

// Log backends
const (
	LogBackendStdout   = "stdout"
	LogBackendDatabase = "database"
)

type Config struct {
	ServerHost               string
	ServerPort               string
	AdminPort                string
	CacheType                string
	RedisHost                string
	RedisPort                string
	RedisURL                 string
	BoltPath                 string
	LogBackend               string
	DatabaseURL              string
	GlobalRateLimitPerSec    int
	PerClientRateLimitPerSec int
	StoreTimeout             time.Duration
	ServerReadTimeout        time.Duration
	ServerWriteTimeout       time.Duration
	ServerShutdownTimeout    time.Duration
}

func Load() *Config {
	// Load .env file if it exists (optional)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	return &Config{
		ServerHost:               getEnv("SERVER_HOST", "localhost"),
		ServerPort:               getEnv("SERVER_PORT", "5001"),
		AdminPort:                getEnv("ADMIN_PORT", "8080"),
		CacheType:                getEnv("CACHE_TYPE", CacheTypeRedis),
		RedisHost:                getEnv("REDIS_HOST", "localhost"),
		RedisPort:                getEnv("REDIS_PORT", "6379"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		BoltPath:                 getEnv("BOLT_PATH", "users-cache.db"),
		LogBackend:               getEnv("LOG_BACKEND", LogBackendStdout),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		GlobalRateLimitPerSec:    getIntEnv("GLOBAL_RATE_LIMIT_PER_SEC", 1000),
		PerClientRateLimitPerSec: getIntEnv("PER_CLIENT_RATE_LIMIT_PER_SEC", 100),
		StoreTimeout:             getDurationEnv("STORE_TIMEOUT", 5*time.Second),
		ServerReadTimeout:        getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:       getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		ServerShutdownTimeout:    getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects configurations the process cannot start with
func (c *Config) Validate() error {
	var errs []error

	if c.ServerHost == "" {
		errs = append(errs, errors.New("SERVER_HOST is required"))
	}
	for name, port := range map[string]string{
		"SERVER_PORT": c.ServerPort,
		"ADMIN_PORT":  c.AdminPort,
		"REDIS_PORT":  c.RedisPort,
	} {
		if err := validatePort(port); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.CacheType {
	case CacheTypeRedis:
		if c.RedisURL == "" && c.RedisHost == "" {
			errs = append(errs, errors.New("REDIS_HOST or REDIS_URL is required for the redis cache"))
		}
	case CacheTypeMemory:
	case CacheTypeBolt:
		if c.BoltPath == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_TYPE: %q", c.CacheType))
	}

	switch c.LogBackend {
	case LogBackendStdout:
	case LogBackendDatabase:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the database log backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_BACKEND: %q", c.LogBackend))
	}

	if c.GlobalRateLimitPerSec < 0 || c.PerClientRateLimitPerSec < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}

	return errors.Join(errs...)
}

// ServerAddr is the RPC listen address
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

// AdminAddr is the admin HTTP listen address
func (c *Config) AdminAddr() string {
	return ":" + c.AdminPort
}

// RedisConnectionURL prefers REDIS_URL and falls back to host and port
func (c *Config) RedisConnectionURL() string {
	if c.RedisURL != "" {
		return c.RedisURL
	}
	return "redis://" + net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", port)
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("out of range: %d", n)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getDurationEnv reads a whole number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Second
		}
	}
	return defaultValue
}

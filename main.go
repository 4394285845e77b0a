package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"Users_Cache/internal/cache"
	"Users_Cache/internal/config"
	"Users_Cache/internal/http"
	"Users_Cache/internal/logger"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/models"
	"Users_Cache/internal/ratelimit"
	"Users_Cache/internal/rpc"
	"Users_Cache/internal/usercache"

	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"

	boltSweepInterval = time.Minute
)

// store is what every cache backend offers to main
type store interface {
	cache.Service
	cache.Pinger
	Close() error
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := initializeLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	startupCtx := logger.WithLogEvent(context.Background(), logger.NewInternalLogEvent())

	appLogger.LogInfo(startupCtx, logger.OpServerStart, "Starting Users Cache service", map[string]interface{}{
		"version": version,
		"config": map[string]interface{}{
			"server_addr": cfg.ServerAddr(),
			"admin_addr":  cfg.AdminAddr(),
			"cache_type":  cfg.CacheType,
			"log_backend": cfg.LogBackend,
			"ttl_seconds": usercache.EntryTTLSeconds,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheStore, err := initializeCache(ctx, cfg)
	if err != nil {
		appLogger.LogError(startupCtx, logger.OpStoreInit, "", "Failed to initialize cache store", err, models.LogSeverityHigh, map[string]interface{}{
			"cache_type": cfg.CacheType,
		})
		appLogger.Close()
		log.Fatalf("Failed to initialize cache store: %v", err)
	}
	defer cacheStore.Close()

	rateLimiter := ratelimit.NewTwoTierRateLimiter(
		int64(cfg.GlobalRateLimitPerSec),
		int64(cfg.GlobalRateLimitPerSec),
		int64(cfg.PerClientRateLimitPerSec),
		int64(cfg.PerClientRateLimitPerSec),
	)
	defer rateLimiter.Stop()

	prom := metrics.NewPrometheus()
	prom.BuildInfo(version)

	cacheService := usercache.NewService(cacheStore, appLogger)

	router := rpc.NewCommandRouter(rpc.NewHandler(cacheService, prom), appLogger, rateLimiter, prom, cfg.StoreTimeout)
	rpcServer := rpc.NewServer(cfg.ServerAddr(), router, appLogger)

	adminHandler := http.NewHandler(cacheService, cacheStore, prom, appLogger, version)
	adminServer := http.NewServer(cfg.AdminAddr(), adminHandler, appLogger, cfg.ServerReadTimeout, cfg.ServerWriteTimeout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rpcServer.Start(); err != nil && !errors.Is(err, rpc.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := adminServer.Start(); err != nil {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()
		shutdownCtx = logger.WithLogEvent(shutdownCtx, logger.NewInternalLogEvent())

		return errors.Join(
			rpcServer.Shutdown(shutdownCtx),
			adminServer.Shutdown(shutdownCtx),
		)
	})

	fmt.Printf("Users Cache RPC server listening on %s\n", cfg.ServerAddr())
	fmt.Printf("Admin endpoints on %s: /health /metrics\n", cfg.AdminAddr())

	if err := g.Wait(); err != nil {
		appLogger.LogError(startupCtx, logger.OpServerShutdown, "", "Server stopped with error", err, models.LogSeverityHigh, nil)
		log.Printf("Server stopped with error: %v", err)
		return
	}

	appLogger.LogInfo(startupCtx, logger.OpServerShutdown, "Server shutdown completed successfully", nil)
	fmt.Println("Server shutdown completed")
}

func initializeLogger(cfg *config.Config) (logger.Service, error) {
	switch cfg.LogBackend {
	case config.LogBackendDatabase:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := logger.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to log database: %w", err)
		}
		return logger.NewDatabaseLogger(db), nil
	default:
		return logger.NewProductionConsoleLogger()
	}
}

func initializeCache(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.CacheType {
	case config.CacheTypeRedis:
		return cache.NewRedisCache(cfg.RedisConnectionURL())
	case config.CacheTypeMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheTypeBolt:
		boltCache, err := cache.NewBoltCache(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		go boltCache.RunSweeper(ctx, boltSweepInterval)
		return boltCache, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}

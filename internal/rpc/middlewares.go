package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Users_Cache/internal/logger"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/models"
	"Users_Cache/internal/ratelimit"
)

const maxLoggedPayload = 1000

// unmatchedCommand labels metrics for patterns nobody handles
const unmatchedCommand = "unmatched"

// loggingMiddleware creates the LogEvent for the command and logs it
func loggingMiddleware(loggerService logger.Service) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) (interface{}, error) {
			logEvent := logger.NewCommandLogEvent(cmd.ClientIP)
			ctx = logger.WithLogEvent(ctx, logEvent)

			payload := string(cmd.Data)
			if len(payload) > maxLoggedPayload {
				payload = payload[:maxLoggedPayload] + "... (truncated)"
			}
			loggerService.LogInfo(ctx, logger.OpCommand, "RPC command received", map[string]interface{}{
				"pattern":   cmd.Pattern,
				"client_ip": cmd.ClientIP,
				"payload":   payload,
			})

			result, err := next(ctx, cmd)

			metadata := map[string]interface{}{
				"pattern":     cmd.Pattern,
				"client_ip":   cmd.ClientIP,
				"duration_ms": time.Since(logEvent.StartTime).Milliseconds(),
				"status_code": http.StatusOK,
			}
			if err != nil {
				metadata["status_code"] = models.AsRPCError(err).StatusCode
			}
			loggerService.LogInfo(ctx, logger.OpCommand, "RPC command processed", metadata)

			return result, err
		}
	}
}

// rateLimitingMiddleware rejects commands over the client or global budget.
// Expects LogEvent to already be in context from logging middleware
func rateLimitingMiddleware(rateLimiter ratelimit.Service, loggerService logger.Service, prom *metrics.Prometheus) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) (interface{}, error) {
			if !rateLimiter.Allow(cmd.ClientIP) {
				loggerService.LogError(ctx, logger.OpRateLimited, "", "Rate limit exceeded", models.ErrRateLimitExceeded, models.LogSeverityMedium, map[string]interface{}{
					"pattern": cmd.Pattern,
				})
				prom.RateLimited.Inc()
				return nil, models.ErrRateLimitExceeded
			}
			return next(ctx, cmd)
		}
	}
}

// metricsMiddleware records outcome and latency per command
func metricsMiddleware(prom *metrics.Prometheus) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, cmd)

			command := cmd.Pattern
			if errors.Is(err, models.ErrUnknownPattern) {
				command = unmatchedCommand
			}
			outcome := metrics.OutcomeOK
			if err != nil {
				outcome = metrics.OutcomeError
			}
			prom.ObserveCommand(command, outcome, time.Since(start).Seconds())

			return result, err
		}
	}
}

// recoveryMiddleware turns a handler panic into an internal error reply
func recoveryMiddleware(loggerService logger.Service) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) (result interface{}, err error) {
			defer func() {
				if p := recover(); p != nil {
					loggerService.LogError(ctx, logger.OpPanicRecovery, "", "Panic recovered in RPC handler",
						fmt.Errorf("panic: %v", p), models.LogSeverityHigh, map[string]interface{}{
							"panic":   fmt.Sprint(p),
							"pattern": cmd.Pattern,
						})
					result = nil
					err = models.NewRPCError(http.StatusInternalServerError, "Internal server error")
				}
			}()

			return next(ctx, cmd)
		}
	}
}

// timeoutMiddleware bounds the store work of one command. Zero disables it.
func timeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, cmd *Command) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, cmd)
		}
	}
}

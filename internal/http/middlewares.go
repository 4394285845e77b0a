package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"Users_Cache/internal/logger"
	"Users_Cache/internal/models"
)

// loggingMiddleware creates LogEvent and logs HTTP requests
func loggingMiddleware(loggerService logger.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			logEvent := logger.NewCommandLogEvent(clientIP)

			ctx := logger.WithLogEvent(r.Context(), logEvent)
			r = r.WithContext(ctx)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			loggerService.LogInfo(ctx, "http_request_complete", "HTTP request processed", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": wrapped.statusCode,
				"duration_ms": time.Since(logEvent.StartTime).Milliseconds(),
				"user_agent":  r.UserAgent(),
				"client_ip":   clientIP,
			})
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(loggerService logger.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					loggerService.LogError(
						r.Context(),
						logger.OpPanicRecovery,
						"",
						"Panic recovered in HTTP handler",
						fmt.Errorf("panic: %v", err),
						models.LogSeverityHigh,
						map[string]interface{}{
							"path":   r.URL.Path,
							"method": r.Method,
						},
					)

					logEvent := logger.GetLogEvent(r.Context())

					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Request-ID", logEvent.ProcessID)
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"message":"Internal server error","statusCode":500}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

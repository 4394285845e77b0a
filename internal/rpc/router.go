package rpc

import (
	"context"
	"encoding/json"
	"time"

	"Users_Cache/internal/logger"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/models"
	"Users_Cache/internal/ratelimit"
)

// Command is a decoded request as seen by handlers
type Command struct {
	Pattern  string
	Data     json.RawMessage
	ClientIP string
}

// HandlerFunc serves one command. The result is marshalled into the reply.
type HandlerFunc func(ctx context.Context, cmd *Command) (interface{}, error)

// Middleware wraps a HandlerFunc
type Middleware func(HandlerFunc) HandlerFunc

// Router maps patterns to handlers
type Router struct {
	handlers    map[string]HandlerFunc
	middlewares []Middleware
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Use appends middleware; the first one registered runs outermost
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Handle registers h for pattern, replacing any previous handler
func (r *Router) Handle(pattern string, h HandlerFunc) {
	r.handlers[pattern] = h
}

// Dispatch runs cmd through the middleware chain.
// Unknown patterns still pass through the middlewares and fail with models.ErrUnknownPattern.
func (r *Router) Dispatch(ctx context.Context, cmd *Command) (interface{}, error) {
	h, ok := r.handlers[cmd.Pattern]
	if !ok {
		h = unknownPattern
	}
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	return h(ctx, cmd)
}

func unknownPattern(context.Context, *Command) (interface{}, error) {
	return nil, models.ErrUnknownPattern
}

// NewCommandRouter wires the cache commands and the standard middleware stack
func NewCommandRouter(
	handler *Handler,
	loggerService logger.Service,
	rateLimiter ratelimit.Service,
	prom *metrics.Prometheus,
	commandTimeout time.Duration,
) *Router {
	router := NewRouter()

	// order matters: logging -> rate limiting -> metrics -> recovery -> timeout
	router.Use(loggingMiddleware(loggerService))
	router.Use(rateLimitingMiddleware(rateLimiter, loggerService, prom))
	router.Use(metricsMiddleware(prom))
	router.Use(recoveryMiddleware(loggerService))
	router.Use(timeoutMiddleware(commandTimeout))

	handler.Register(router)
	return router
}

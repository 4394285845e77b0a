package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"Users_Cache/internal/logger"

	"github.com/gorilla/mux"
)

// Server is the admin HTTP server exposing health and metrics
type Server struct {
	handler *Handler
	logger  logger.Service
	server  *http.Server
}

// NewServer creates a new admin HTTP server
func NewServer(
	addr string,
	handler *Handler,
	logger logger.Service,
	readTimeout, writeTimeout time.Duration,
) *Server {
	router := mux.NewRouter()

	srv := &Server{
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}

	// order matters: logging -> recovery
	router.Use(loggingMiddleware(logger))
	router.Use(recoveryMiddleware(logger))

	srv.registerRoutes(router)

	return srv
}

func (s *Server) registerRoutes(router *mux.Router) {
	router.HandleFunc("/health", s.handler.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", s.handler.Metrics()).Methods(http.MethodGet)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Users Cache admin","endpoints":["/health","/metrics"]}`))
	}).Methods(http.MethodGet)
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.LogInfo(context.Background(), logger.OpServerStart, "Starting admin HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve accepts connections on listener
func (s *Server) Serve(listener net.Listener) error {
	err := s.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.LogInfo(ctx, logger.OpServerShutdown, "Shutting down admin HTTP server", nil)
	return s.server.Shutdown(ctx)
}

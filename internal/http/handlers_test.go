package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"Users_Cache/internal/logger"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/mocks"
	"Users_Cache/internal/models"
	"Users_Cache/internal/usercache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAdmin(t *testing.T, store *mocks.MockStore, log *mocks.MockLogger) (*Server, *metrics.Prometheus) {
	t.Helper()
	prom := metrics.NewPrometheus()
	handler := NewHandler(usercache.NewService(store, log), store, prom, log, "1.0.0")
	return NewServer(":0", handler, log, 0, 0), prom
}

func TestHealthCheck_Healthy(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("Ping", mock.Anything).Return(nil).Once()
	srv, _ := setupAdmin(t, store, mocks.NewPermissiveLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var status models.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "hola", status.Probe)
	assert.Equal(t, "up", status.Store)
	assert.Equal(t, "1.0.0", status.Version)
	store.AssertExpectations(t)
}

func TestHealthCheck_StoreDown(t *testing.T) {
	store := &mocks.MockStore{}
	pingErr := errors.New("dial tcp: connection refused")
	store.On("Ping", mock.Anything).Return(pingErr).Once()
	log := mocks.NewPermissiveLogger()
	srv, _ := setupAdmin(t, store, log)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var status models.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "down", status.Store)
	assert.Equal(t, "hola", status.Probe)
	log.AssertCalled(t, "LogError", mock.Anything, logger.OpHealthCheck, "", "Cache store unreachable", pingErr, models.LogSeverityHigh, mock.Anything)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, prom := setupAdmin(t, &mocks.MockStore{}, mocks.NewPermissiveLogger())
	prom.ObserveCommand(models.PatternSaveCache, metrics.OutcomeOK, 0.001)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `users_cache_commands_total{command="saveCache",outcome="ok"} 1`)
}

func TestRootAndUnknownRoutes(t *testing.T) {
	srv, _ := setupAdmin(t, &mocks.MockStore{}, mocks.NewPermissiveLogger())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/health")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"Users_Cache/internal/cache"
	"Users_Cache/internal/metrics"
	"Users_Cache/internal/mocks"
	"Users_Cache/internal/models"
	"Users_Cache/internal/ratelimit"
	"Users_Cache/internal/rpc"
	"Users_Cache/internal/usercache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()

	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	limiter := ratelimit.NewTwoTierRateLimiter(0, 0, 0, 0)
	t.Cleanup(limiter.Stop)

	log := mocks.NewPermissiveLogger()
	prom := metrics.NewPrometheus()
	router := rpc.NewCommandRouter(rpc.NewHandler(usercache.NewService(store, log), prom), log, limiter, prom, time.Second)
	srv := rpc.NewServer("127.0.0.1:0", router, log)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return listener.Addr().String()
}

func TestRun_Commands(t *testing.T) {
	addr := startServer(t)

	steps := []struct {
		args     []string
		expected string
	}{
		{[]string{"test"}, `"hola"`},
		{[]string{"save", "user:42", `{"name":"Ana"}`}, `"user saved in cache"`},
		{[]string{"get", "user:42"}, `{"name":"Ana"}`},
		{[]string{"del", "user:42"}, `true`},
		{[]string{"get", "user:42"}, `null`},
	}

	for _, step := range steps {
		var out bytes.Buffer
		require.NoError(t, run(append([]string{"-addr", addr}, step.args...), &out), step.args)
		assert.Equal(t, step.expected+"\n", out.String(), step.args)
	}
}

func TestRun_ServerError(t *testing.T) {
	addr := startServer(t)

	err := run([]string{"-addr", addr, "get", ""}, &bytes.Buffer{})

	var rpcErr *models.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "id is required", rpcErr.Message)
}

func TestBuildCommand_Usage(t *testing.T) {
	invalid := [][]string{
		nil,
		{"flush"},
		{"test", "extra"},
		{"save", "id"},
		{"get"},
		{"del", "a", "b"},
	}

	for _, args := range invalid {
		_, _, err := buildCommand(args)
		assert.ErrorIs(t, err, errUsage, args)
	}

	_, _, err := buildCommand([]string{"save", "id", "{not json"})
	assert.ErrorContains(t, err, "not valid JSON")
}

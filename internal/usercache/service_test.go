package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"Users_Cache/internal/cache"
	"Users_Cache/internal/mocks"
	"Users_Cache/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// emptyError has no description
type emptyError struct{}

func (emptyError) Error() string { return "" }

func requireRPCError(t *testing.T, err error, statusCode int, message string) {
	t.Helper()
	var rpcErr *models.RPCError
	require.True(t, errors.As(err, &rpcErr), "expected *models.RPCError, got %T", err)
	assert.Equal(t, statusCode, rpcErr.StatusCode)
	assert.Equal(t, message, rpcErr.Message)
}

func TestService_Probe(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())

	assert.Equal(t, "hola", svc.Probe())

	// the store is never consulted, whatever its health
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestService_Save_UsesFixedTTL(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()
	payload := json.RawMessage(`{"name":"Ana"}`)

	store.On("Set", ctx, "user:42", payload, time.Hour).Return(nil).Once()

	reply, err := svc.Save(ctx, "user:42", payload)

	require.NoError(t, err)
	assert.Equal(t, "user saved in cache", reply)
	assert.Equal(t, 3600*time.Second, EntryTTL)
	store.AssertExpectations(t)
}

func TestService_Save_StoreFailure(t *testing.T) {
	store := &mocks.MockStore{}
	log := mocks.NewPermissiveLogger()
	svc := NewService(store, log)
	ctx := context.Background()
	storeErr := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

	store.On("Set", ctx, "user:42", mock.Anything, EntryTTL).Return(storeErr).Once()

	reply, err := svc.Save(ctx, "user:42", json.RawMessage(`1`))

	assert.Empty(t, reply)
	requireRPCError(t, err, http.StatusBadRequest, storeErr.Error())
	assert.NotErrorIs(t, err, storeErr)
	log.AssertCalled(t, "LogError", ctx, "save_cache", "user:42", "Cache store call failed", storeErr, models.LogSeverityMedium, mock.Anything)
}

func TestService_StoreFailure_WithoutDescription(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Set", ctx, "k", mock.Anything, EntryTTL).Return(emptyError{})
	store.On("Get", ctx, "k").Return(nil, emptyError{})
	store.On("Delete", ctx, "k").Return(false, emptyError{})

	_, err := svc.Save(ctx, "k", json.RawMessage(`1`))
	requireRPCError(t, err, http.StatusBadRequest, "Unknown error")

	_, err = svc.Get(ctx, "k")
	requireRPCError(t, err, http.StatusBadRequest, "Unknown error")

	_, err = svc.Delete(ctx, "k")
	requireRPCError(t, err, http.StatusBadRequest, "Unknown error")
}

func TestService_Get_Hit(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Get", ctx, "user:42").Return([]byte(`{"name":"Ana"}`), nil).Once()

	value, err := svc.Get(ctx, "user:42")

	require.NoError(t, err)
	require.True(t, value.IsPresent())
	assert.JSONEq(t, `{"name":"Ana"}`, string(value.MustGet()))
}

func TestService_Get_MissIsNotAnError(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Get", ctx, "user:42").Return(nil, models.ErrCacheMiss).Once()

	value, err := svc.Get(ctx, "user:42")

	require.NoError(t, err)
	assert.True(t, value.IsAbsent())
}

func TestService_Get_StoreFailure(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Get", ctx, "user:42").Return(nil, errors.New("redis get failed: i/o timeout")).Once()

	value, err := svc.Get(ctx, "user:42")

	assert.True(t, value.IsAbsent())
	requireRPCError(t, err, http.StatusBadRequest, "redis get failed: i/o timeout")
}

func TestService_Get_StoredValueNotJSON(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Get", ctx, "user:42").Return([]byte("not json"), nil).Once()

	value, err := svc.Get(ctx, "user:42")

	assert.True(t, value.IsAbsent())
	requireRPCError(t, err, http.StatusBadRequest, "failed to unmarshal value: stored value is not valid JSON")
}

func TestService_Delete(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	store.On("Delete", ctx, "present").Return(true, nil).Once()
	store.On("Delete", ctx, "absent").Return(false, nil).Once()
	store.On("Delete", ctx, "broken").Return(false, errors.New("redis delete failed: EOF")).Once()

	removed, err := svc.Delete(ctx, "present")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Delete(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.Delete(ctx, "broken")
	assert.False(t, removed)
	requireRPCError(t, err, http.StatusBadRequest, "redis delete failed: EOF")

	store.AssertExpectations(t)
}

func TestService_EmptyKeyRejected(t *testing.T) {
	store := &mocks.MockStore{}
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	_, err := svc.Save(ctx, "", json.RawMessage(`1`))
	requireRPCError(t, err, http.StatusBadRequest, "id is required")

	_, err = svc.Get(ctx, "")
	requireRPCError(t, err, http.StatusBadRequest, "id is required")

	_, err = svc.Delete(ctx, "")
	requireRPCError(t, err, http.StatusBadRequest, "id is required")

	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func setupRedisService(t *testing.T) (*miniredis.Miniredis, Service) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, NewService(store, mocks.NewPermissiveLogger())
}

func TestService_Redis_ExampleScenario(t *testing.T) {
	_, svc := setupRedisService(t)
	ctx := context.Background()

	reply, err := svc.Save(ctx, "user:42", json.RawMessage(`{"name":"Ana"}`))
	require.NoError(t, err)
	assert.Equal(t, "user saved in cache", reply)

	value, err := svc.Get(ctx, "user:42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana"}`, string(value.MustGet()))

	removed, err := svc.Delete(ctx, "user:42")
	require.NoError(t, err)
	assert.True(t, removed)

	value, err = svc.Get(ctx, "user:42")
	require.NoError(t, err)
	assert.True(t, value.IsAbsent())
}

func TestService_Redis_EntriesExpireAfterOneHour(t *testing.T) {
	mr, svc := setupRedisService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "user:7", json.RawMessage(`"payload"`))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("user:7"))

	mr.FastForward(59*time.Minute + 59*time.Second)
	value, err := svc.Get(ctx, "user:7")
	require.NoError(t, err)
	assert.Equal(t, `"payload"`, string(value.MustGet()))

	mr.FastForward(time.Second)
	value, err = svc.Get(ctx, "user:7")
	require.NoError(t, err)
	assert.True(t, value.IsAbsent())
}

func TestService_Redis_OverwriteIsLastWriteWins(t *testing.T) {
	_, svc := setupRedisService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "k", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)
	_, err = svc.Save(ctx, "k", json.RawMessage(`{"v":2}`))
	require.NoError(t, err)

	value, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(value.MustGet()))
}

func TestService_Redis_DeleteAbsentKey(t *testing.T) {
	_, svc := setupRedisService(t)
	ctx := context.Background()

	removed, err := svc.Delete(ctx, "never-written")
	require.NoError(t, err)
	assert.False(t, removed)

	value, err := svc.Get(ctx, "never-written")
	require.NoError(t, err)
	assert.True(t, value.IsAbsent())
}

func TestService_Redis_ForeignValueIsBadRequest(t *testing.T) {
	mr, svc := setupRedisService(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("user:9", "not json"))

	value, err := svc.Get(ctx, "user:9")

	assert.True(t, value.IsAbsent())
	requireRPCError(t, err, http.StatusBadRequest, "failed to unmarshal value: stored value is not valid JSON")
}

func TestService_RoundTripPayloadShapes(t *testing.T) {
	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	svc := NewService(store, mocks.NewPermissiveLogger())
	ctx := context.Background()

	payloads := map[string]string{
		"object":  `{"name":"Ana","age":31,"roles":["admin"],"meta":{"active":true}}`,
		"array":   `[1,"two",{"three":3},null]`,
		"string":  `"plain text with ünïcödé"`,
		"number":  `42.5`,
		"boolean": `false`,
		"null":    `null`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Save(ctx, models.CacheKey("shape:"+name), json.RawMessage(payload))
			require.NoError(t, err)

			value, err := svc.Get(ctx, models.CacheKey("shape:"+name))
			require.NoError(t, err)
			assert.JSONEq(t, payload, string(value.MustGet()))
		})
	}
}

func TestService_Redis_StoreDown(t *testing.T) {
	mr, svc := setupRedisService(t)
	ctx := context.Background()

	mr.Close()

	assert.Equal(t, "hola", svc.Probe())

	_, err := svc.Save(ctx, "k", json.RawMessage(`1`))
	var rpcErr *models.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, http.StatusBadRequest, rpcErr.StatusCode)
	assert.Contains(t, rpcErr.Message, "redis set failed")
}

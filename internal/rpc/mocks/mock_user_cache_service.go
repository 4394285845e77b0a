package mocks

import (
	"context"
	"encoding/json"

	"Users_Cache/internal/models"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockUserCacheService is a mock implementation of usercache.Service
type MockUserCacheService struct {
	mock.Mock
}

// Probe mocks the Probe method of usercache.Service
func (m *MockUserCacheService) Probe() string {
	args := m.Called()
	return args.String(0)
}

// Save mocks the Save method of usercache.Service
func (m *MockUserCacheService) Save(ctx context.Context, key models.CacheKey, value json.RawMessage) (string, error) {
	args := m.Called(ctx, key, value)
	return args.String(0), args.Error(1)
}

// Get mocks the Get method of usercache.Service
func (m *MockUserCacheService) Get(ctx context.Context, key models.CacheKey) (mo.Option[json.RawMessage], error) {
	args := m.Called(ctx, key)
	return args.Get(0).(mo.Option[json.RawMessage]), args.Error(1)
}

// Delete mocks the Delete method of usercache.Service
func (m *MockUserCacheService) Delete(ctx context.Context, key models.CacheKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

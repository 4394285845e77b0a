package mocks

import (
	"context"

	"Users_Cache/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of logger.Service
type MockLogger struct {
	mock.Mock
}

// NewPermissiveLogger returns a MockLogger that accepts every call
func NewPermissiveLogger() *MockLogger {
	m := &MockLogger{}
	m.On("LogInfo", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("LogSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("LogError", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}

// LogInfo mocks the LogInfo method of logger.Service
func (m *MockLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	m.Called(ctx, operation, message, metadata)
}

// LogSuccess mocks the LogSuccess method of logger.Service
func (m *MockLogger) LogSuccess(ctx context.Context, operation, cacheKey, message string, metadata map[string]interface{}) {
	m.Called(ctx, operation, cacheKey, message, metadata)
}

// LogError mocks the LogError method of logger.Service
func (m *MockLogger) LogError(ctx context.Context, operation, cacheKey, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	m.Called(ctx, operation, cacheKey, message, err, severity, metadata)
}

// Close mocks the Close method of logger.Service
func (m *MockLogger) Close() error {
	args := m.Called()
	return args.Error(0)
}

package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockRateLimiter is a mock implementation of ratelimit.Service
type MockRateLimiter struct {
	mock.Mock
}

// Allow mocks the Allow method of ratelimit.Service
func (m *MockRateLimiter) Allow(clientIP string) bool {
	args := m.Called(clientIP)
	return args.Bool(0)
}

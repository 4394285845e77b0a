package ratelimit

// Service decides whether a client may run one more command
// External packages should use this interface, not the concrete implementations
type Service interface {
	Allow(clientIP string) bool
}

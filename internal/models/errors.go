package models

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCacheMiss indicates that the key has no live entry in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidArgument indicates that a command carried an unusable payload
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRateLimitExceeded indicates that rate limit has been exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownPattern indicates that no handler is registered for a command
	ErrUnknownPattern = errors.New("There is no matching message handler defined in the remote service.")
)

// UnknownErrorMessage is reported when a failure carries no description
const UnknownErrorMessage = "Unknown error"

// RPCError is the normalized error returned to RPC callers in place of a result
type RPCError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// NewRPCError creates a normalized error with the given status code
func NewRPCError(statusCode int, message string) *RPCError {
	if message == "" {
		message = UnknownErrorMessage
	}
	return &RPCError{
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewBadRequestError normalizes err into a 400 error, keeping only its description
func NewBadRequestError(err error) *RPCError {
	if err == nil {
		return NewRPCError(http.StatusBadRequest, "")
	}
	return NewRPCError(http.StatusBadRequest, err.Error())
}

// AsRPCError converts any error into its wire shape.
// Errors that are already normalized pass through untouched.
func AsRPCError(err error) *RPCError {
	var rpcErr *RPCError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, ErrUnknownPattern):
		return NewRPCError(http.StatusNotFound, ErrUnknownPattern.Error())
	case errors.Is(err, ErrRateLimitExceeded):
		return NewRPCError(http.StatusTooManyRequests, ErrRateLimitExceeded.Error())
	case errors.Is(err, ErrInvalidArgument):
		return NewBadRequestError(err)
	default:
		return NewRPCError(http.StatusInternalServerError, err.Error())
	}
}

package stream

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stream package.
var (
	// ErrMissingServerURL indicates no backend URL was configured.
	ErrMissingServerURL = errors.New("stream: server URL is required")

	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("stream: not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("stream: already connected")

	// ErrAuthFailed indicates the backend rejected the auth token.
	ErrAuthFailed = errors.New("stream: authentication failed")

	// ErrEmptyFrame indicates SendFrame was called with no data.
	ErrEmptyFrame = errors.New("stream: empty frame")
)

// ConnectionError represents a WebSocket connection error.
type ConnectionError struct {
	// Reason describes what failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates whether reconnecting may help.
	Retryable bool
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stream: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("stream: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if reconnection should be attempted.
func (e *ConnectionError) IsRetryable() bool {
	return e.Retryable
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{
		Reason:    reason,
		Cause:     cause,
		Retryable: retryable,
	}
}

// ServerError is an application-level error reported by the backend
// over the socket, as opposed to a transport failure.
type ServerError struct {
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("stream: server error: %s", e.Message)
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.IsRetryable()
	}
	return false
}

// IsAuthFailure returns true if the backend rejected our credentials.
// Reconnecting with the same token will not succeed.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

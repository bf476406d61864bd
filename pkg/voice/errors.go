package voice

import (
	"errors"
	"fmt"
)

// Sentinel errors for the voice package.
var (
	// ErrMissingTokenSource indicates no token source was provided.
	ErrMissingTokenSource = errors.New("voice: token source is required")

	// ErrMissingRealtimeURL indicates the realtime endpoint was not set.
	ErrMissingRealtimeURL = errors.New("voice: realtime URL is required")

	// ErrMissingModel indicates the realtime model was not set.
	ErrMissingModel = errors.New("voice: model is required")

	// ErrNotConnected indicates the session is not connected.
	ErrNotConnected = errors.New("voice: not connected")

	// ErrAlreadyConnected indicates the session is already connected.
	ErrAlreadyConnected = errors.New("voice: already connected")

	// ErrDataChannelClosed indicates the event channel is not open.
	ErrDataChannelClosed = errors.New("voice: data channel closed")

	// ErrEmptyToken indicates the backend returned an empty ephemeral key.
	ErrEmptyToken = errors.New("voice: empty ephemeral key")
)

// APIError represents an error from the realtime API or the token
// endpoint.
type APIError struct {
	// StatusCode is the HTTP status code (if applicable).
	StatusCode int

	// Code is the error code from the API.
	Code string

	// Message is the human-readable error message.
	Message string

	// Retryable indicates if the request can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("voice: API error [%s]: %s", e.Code, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("voice: API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("voice: API error: %s", e.Message)
}

// IsRetryable returns true if the request can be retried.
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, code, message string) *APIError {
	retryable := statusCode == 429 || statusCode >= 500
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  retryable,
	}
}

// ConnectionError represents a failure to establish or keep the peer
// connection.
type ConnectionError struct {
	// Reason describes why the connection failed.
	Reason string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voice: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("voice: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error) *ConnectionError {
	return &ConnectionError{Reason: reason, Cause: cause}
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}

// Package errors defines the structured error codes the API surface
// returns to clients.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of API failure.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeRateLimitExceeded indicates the client exceeded its rate limit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeRetrievalFailed indicates every retrieval sub-call failed.
	ErrCodeRetrievalFailed ErrorCode = "RETRIEVAL_FAILED"
	// ErrCodeServiceUnavailable indicates a collaborator is unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected server failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError is a structured error carried to the response writer.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code to a response status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeRetrievalFailed, ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates an APIError.
func New(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Wrap creates an APIError with a cause.
func Wrap(code ErrorCode, message string, cause error) *APIError {
	return &APIError{Code: code, Message: message, Cause: cause}
}

// Package apierror defines the structured error envelope returned by the
// agrimarket HTTP API.
//
// Handlers report failures as *Error values; clients read Category and
// Retryable to decide whether to show a message, fix input, or try again.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies errors for client handling decisions
type Category string

const (
	// CategoryInputError indicates the request payload was malformed
	// Example: missing location, unparseable JSON body
	CategoryInputError Category = "INPUT_ERROR"

	// CategoryNotFound indicates the requested resource doesn't exist
	// Example: unknown cart id, unknown catalog item, city not found upstream
	CategoryNotFound Category = "NOT_FOUND"

	// CategoryAuthError indicates a missing or rejected session
	CategoryAuthError Category = "AUTH_ERROR"

	// CategoryRateLimit indicates an upstream quota was exceeded
	CategoryRateLimit Category = "RATE_LIMIT"

	// CategoryUpstreamError indicates a remote dependency answered with a failure
	CategoryUpstreamError Category = "UPSTREAM_ERROR"

	// CategoryServiceError indicates this service or its dependency is unavailable
	CategoryServiceError Category = "SERVICE_ERROR"
)

// Error is a structured API error.
//
//	return &apierror.Error{
//	    Code:      "LOCATION_NOT_FOUND",
//	    Message:   "city 'Atlantis' not found",
//	    Category:  apierror.CategoryNotFound,
//	    Details:   map[string]string{"location": "Atlantis"},
//	}
type Error struct {
	// Code is a machine-readable identifier (e.g., "CART_NOT_FOUND")
	Code string `json:"code"`

	// Message is a human-readable description
	Message string `json:"message"`

	// Category groups errors for client routing decisions
	Category Category `json:"category"`

	// Retryable tells the client the same request may succeed later
	Retryable bool `json:"retryable"`

	// Details carries additional context such as the offending field
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Status returns the HTTP status for this error
func (e *Error) Status() int {
	return HTTPStatusForCategory(e.Category)
}

// Response is the standard response envelope for every API endpoint.
//
//	Response{Success: true, Data: summary}
//	Response{Success: false, Error: &Error{...}}
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// HTTPStatusForCategory maps an error category to an HTTP status code.
//
//   - CategoryInputError    → 400 Bad Request
//   - CategoryAuthError     → 401 Unauthorized
//   - CategoryNotFound      → 404 Not Found
//   - CategoryRateLimit     → 429 Too Many Requests
//   - CategoryUpstreamError → 502 Bad Gateway
//   - CategoryServiceError  → 503 Service Unavailable
//   - Unknown               → 500 Internal Server Error
func HTTPStatusForCategory(category Category) int {
	switch category {
	case CategoryInputError:
		return http.StatusBadRequest
	case CategoryAuthError:
		return http.StatusUnauthorized
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	case CategoryUpstreamError:
		return http.StatusBadGateway
	case CategoryServiceError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Input builds a non-retryable validation error. field may be empty.
func Input(code, message, field string) *Error {
	e := &Error{Code: code, Message: message, Category: CategoryInputError}
	if field != "" {
		e.Details = map[string]string{"field": field}
	}
	return e
}

// NotFound builds a not-found error
func NotFound(code, message string) *Error {
	return &Error{Code: code, Message: message, Category: CategoryNotFound}
}

// Unauthorized builds an authentication error
func Unauthorized(message string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: message, Category: CategoryAuthError}
}

// Upstream builds a retryable error for a failed remote call
func Upstream(code, message string) *Error {
	return &Error{Code: code, Message: message, Category: CategoryUpstreamError, Retryable: true}
}

// Unavailable builds a retryable service error
func Unavailable(code, message string) *Error {
	return &Error{Code: code, Message: message, Category: CategoryServiceError, Retryable: true}
}

// Internal builds an unclassified error; the cause is logged, never returned
func Internal() *Error {
	return &Error{Code: "INTERNAL_ERROR", Message: "internal server error"}
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

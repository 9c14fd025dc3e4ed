package client

import (
	"errors"
	"fmt"

	"github.com/rentdynamics/rd-client-go/internal/transport"
)

// APIError represents an error response from the Rent Dynamics API.
type APIError = transport.APIError

// Sentinel errors for common HTTP status codes. Any *APIError with the
// matching status satisfies errors.Is.
var (
	ErrUnauthorized = transport.ErrUnauthorized
	ErrForbidden    = transport.ErrForbidden
	ErrNotFound     = transport.ErrNotFound
	ErrRateLimited  = transport.ErrRateLimited
)

// AuthError indicates an authentication/signing failure.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("rentdynamics auth: %s", e.Message)
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rentdynamics validation: %s: %s", e.Field, e.Message)
}

// IsRetryable returns true if the error is transient and the request can be retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}
	return false
}

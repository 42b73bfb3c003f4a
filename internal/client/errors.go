// AngelaMos | 2026
// errors.go

package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired is a 401 from any call except Me. Callers
	// send the user to login.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNotLoggedIn is Me's answer to a 401. It is a state, not a failure.
	ErrNotLoggedIn = errors.New("not logged in")
)

// AccessDeniedError is a 403: the caller is known but their tier, role or a
// feature flag does not allow the call. Code carries the server's reason
// (NO_TIER, TIER_INSUFFICIENT, FLAG_DISABLED, FORBIDDEN).
type AccessDeniedError struct {
	Code    string
	Message string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied (%s): %s", e.Code, e.Message)
}

// ValidationError is a 400 or 422. Nothing was changed on the server.
type ValidationError struct {
	Status  int
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request (%d %s): %s", e.Status, e.Code, e.Message)
}

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d %s): %s", e.Status, e.Code, e.Message)
}

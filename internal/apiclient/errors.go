package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates the backend rejected the bearer token.
	// The client's unauthorized handler has already run when this is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates the backend is unreachable.
	ErrUnavailable = errors.New("traitquest api unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("traitquest api request timed out")
)

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("traitquest api returned status %d: %s", e.StatusCode, e.Body)
}

func errorCode(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.As(err, &se):
		return fmt.Sprintf("HTTP_%d", se.StatusCode)
	default:
		return "UNKNOWN"
	}
}

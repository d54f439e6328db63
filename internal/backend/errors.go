package backend

import (
	"errors"
	"fmt"
)

// Error is a failed backend call. StatusCode is zero when the request never
// got an HTTP response (connection refused, DNS failure, deadline exceeded).
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0 && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	case e.StatusCode == 0:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsTransport reports whether the call failed before the backend answered.
func (e *Error) IsTransport() bool {
	return e.StatusCode == 0
}

// IsTransportError reports whether err carries a transport-level backend failure.
func IsTransportError(err error) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.IsTransport()
}

// StatusCode returns the HTTP status of the backend failure in err, or 0.
func StatusCode(err error) int {
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode
	}
	return 0
}

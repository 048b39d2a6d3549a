// Package upstream holds the failure taxonomy and retry policy shared by the
// clients for the ranked-ladder and chat-platform APIs.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMalformed marks a response that decoded but lacked required fields.
var ErrMalformed = errors.New("malformed upstream response")

// Error is a failed upstream call. StatusCode is 0 when the request never
// produced a response (dial, timeout, reset).
type Error struct {
	Op         string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the call could succeed.
func (e *Error) Transient() bool {
	switch {
	case e.StatusCode == 0:
		return !errors.Is(e.Err, ErrMalformed)
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsTransient reports whether err is an upstream failure worth retrying.
func IsTransient(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	return false
}

// StatusCode returns the HTTP status of an upstream failure, or 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

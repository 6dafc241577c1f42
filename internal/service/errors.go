package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalid  = errors.New("invalid")
	ErrUpstream = errors.New("upstream request failed")
	ErrBlocked  = errors.New("blocked by upstream")
)

// StatusError carries an upstream HTTP status so callers can classify
// failures without matching on message text. RetryAfter is the server's
// suggested wait when it sent one, zero otherwise.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// StatusRetryAfter extracts the server's suggested wait from err, if any.
func StatusRetryAfter(err error) (time.Duration, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter, true
	}
	return 0, false
}

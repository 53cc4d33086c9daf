package oracle

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// UnavailableError indicates a transient oracle failure: transport error,
// timeout, rate limit, or provider 5xx. Callers may retry after RetryAfter.
type UnavailableError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s oracle unavailable (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// NewUnavailableError creates an UnavailableError. If retryAfterSecs is 0 or
// negative, it defaults to 30s.
func NewUnavailableError(provider string, err error, retryAfterSecs int) *UnavailableError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 30
	}
	return &UnavailableError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// IsUnavailable reports whether err wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

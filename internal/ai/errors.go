package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AuthError: provider rejected the credentials. Terminal, never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError: provider throttled the request. Transient.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded: %v", e.Provider, e.Err)
}
func (e *RateLimitError) Unwrap() error { return e.Err }

// TimeoutError: the request did not complete in time. Transient.
type TimeoutError struct {
	Provider string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out: %v", e.Provider, e.Err)
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// InvalidRequestError: the request itself is malformed. Terminal.
type InvalidRequestError struct {
	Provider string
	Err      error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s rejected request: %v", e.Provider, e.Err)
}
func (e *InvalidRequestError) Unwrap() error { return e.Err }

// ParseError: structured-output generation returned content that does
// not match the expected shape.
type ParseError struct {
	Provider string
	Raw      string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s returned unparseable structured output: %v", e.Provider, e.Err)
}
func (e *ParseError) Unwrap() error { return e.Err }

// ProviderError is the catch-all for backend failures with no more
// specific classification.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
}
func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying: rate limits and
// timeouts qualify, authentication and malformed-request failures do not.
func IsTransient(err error) bool {
	var rate *RateLimitError
	if errors.As(err, &rate) {
		return true
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

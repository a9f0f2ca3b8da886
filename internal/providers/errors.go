package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error classes. Client errors wrap exactly one of these.
var (
	// ErrAuth means the credentials were rejected. Not retried; fatal for a run.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited means the provider asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient covers network failures and 5xx responses.
	ErrTransient = errors.New("transient provider error")
	// ErrMalformedResponse means the response could not be used.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRequest means the provider rejected the request itself. Not retried.
	ErrRequest = errors.New("request rejected")
)

// RateLimitError carries the provider's retry-after hint.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited (retry after %s): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// classifyStatus wraps a non-2xx HTTP status in the matching error class.
func classifyStatus(provider string, status int, retryAfter time.Duration, body string) error {
	body = truncate(strings.TrimSpace(body), 500)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d): %s", provider, ErrAuth, status, body)
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, RetryAfter: retryAfter, Message: body}
	case status == http.StatusRequestTimeout || status >= 500:
		return fmt.Errorf("%s: %w (status %d): %s", provider, ErrTransient, status, body)
	default:
		return fmt.Errorf("%s: %w (status %d): %s", provider, ErrRequest, status, body)
	}
}

// IsRetryable reports whether a failed call is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) || errors.Is(err, ErrMalformedResponse)
}

// ErrorType returns a short label for an error class, for records and logs.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrRequest):
		return "request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

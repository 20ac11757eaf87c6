package pixiv

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthFailed is returned when the credential refresh itself is rejected
// by the upstream auth endpoint. It is not retryable within a run.
var ErrAuthFailed = errors.New("upstream authentication failed")

// APIError is the typed error raised by all client calls that reach the
// upstream API. It carries the HTTP status code consumed by the retry policy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error: status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the upstream throttled the call.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Forbidden reports whether the upstream refused the call outright.
func (e *APIError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// NotFound reports whether the requested resource no longer exists upstream.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// StatusOf extracts the HTTP-like status code from an error, or 0 when the
// error does not carry one (network failures, decode errors).
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

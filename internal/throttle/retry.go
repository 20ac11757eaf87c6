package throttle

import (
	"math/rand"
	"net/http"
	"time"
)

// ErrorClass partitions upstream failures for backoff purposes.
type ErrorClass int

// Upstream error classes.
const (
	// ClassTransient covers every failure that is neither a rate limit nor
	// a refusal: 5xx, network errors, decode errors.
	ClassTransient ErrorClass = iota

	// ClassRateLimited is an HTTP 429 from the upstream.
	ClassRateLimited

	// ClassForbidden is an HTTP 403; repeated occurrences beyond the retry
	// ceiling fail the page fetch fatally.
	ClassForbidden
)

// String returns the class name for log output.
func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassForbidden:
		return "forbidden"
	default:
		return "transient"
	}
}

// PolicyConfig holds the per-class backoff windows.
type PolicyConfig struct {
	RateLimited Window
	Forbidden   Window
	Transient   Window
}

// DefaultPolicyConfig returns the standard backoff windows.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		RateLimited: Window{Min: 30 * time.Second, Max: 60 * time.Second},
		Forbidden:   Window{Min: 60 * time.Second, Max: 120 * time.Second},
		Transient:   Window{Min: 10 * time.Second, Max: 20 * time.Second},
	}
}

// Policy classifies upstream failures and draws backoff durations. Like the
// Limiter it is deterministic given an injected rand source.
type Policy struct {
	cfg PolicyConfig
	rnd *rand.Rand
}

// NewPolicy creates a Policy with the given backoff windows.
func NewPolicy(cfg PolicyConfig, opts ...Option) *Policy {
	o := applyOptions(opts)
	return &Policy{cfg: cfg, rnd: o.rnd}
}

// Classify maps an HTTP-like status code to an error class. A zero status
// (network failure, decode error) is transient.
func Classify(status int) ErrorClass {
	switch status {
	case http.StatusTooManyRequests:
		return ClassRateLimited
	case http.StatusForbidden:
		return ClassForbidden
	default:
		return ClassTransient
	}
}

// BackoffFor draws a backoff duration from the class's configured window.
func (p *Policy) BackoffFor(class ErrorClass) time.Duration {
	return p.windowFor(class).draw(p.rnd)
}

// WindowFor exposes the configured window for a class. Used by tests to
// assert draws stay in range.
func (p *Policy) WindowFor(class ErrorClass) Window {
	return p.windowFor(class)
}

func (p *Policy) windowFor(class ErrorClass) Window {
	switch class {
	case ClassRateLimited:
		return p.cfg.RateLimited
	case ClassForbidden:
		return p.cfg.Forbidden
	default:
		return p.cfg.Transient
	}
}

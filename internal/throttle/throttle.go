// Package throttle enforces the upstream pacing contract: a randomized delay
// before every API call, a longer pause after every batch of calls, and
// classified backoff windows when the upstream pushes back.
package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Window is an inclusive [Min, Max] delay range; draws are uniform.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// draw picks a uniform duration from the window.
func (w Window) draw(rnd *rand.Rand) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(rnd.Int63n(int64(w.Max-w.Min)+1))
}

// Contains reports whether d falls inside the window, inclusive.
func (w Window) Contains(d time.Duration) bool {
	return d >= w.Min && d <= w.Max
}

// Config holds the limiter's delay windows and batch pacing.
type Config struct {
	// Delay is applied before every upstream call.
	Delay Window

	// BatchSize triggers BatchPause after every BatchSize calls.
	BatchSize int

	// BatchPause is the longer rest inserted between batches.
	BatchPause Window
}

// DefaultConfig returns the standard pacing configuration.
func DefaultConfig() Config {
	return Config{
		Delay:      Window{Min: 1 * time.Second, Max: 10 * time.Second},
		BatchSize:  5,
		BatchPause: Window{Min: 5 * time.Second, Max: 15 * time.Second},
	}
}

// SleepFunc suspends the caller for d or until the context is done.
// Injected in tests to make pacing deterministic and instantaneous.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext is the production SleepFunc.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter paces upstream calls. It has no side effects besides elapsed time
// and is deterministic given an injected rand source and sleep function.
// Safe for use from a single orchestration run; runs do not share limiters.
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	rnd   *rand.Rand
	sleep SleepFunc
	calls int
}

// Option customizes a Limiter or Policy.
type Option func(*options)

type options struct {
	rnd   *rand.Rand
	sleep SleepFunc
}

// WithRand injects a seeded random source for deterministic tests.
func WithRand(rnd *rand.Rand) Option {
	return func(o *options) { o.rnd = rnd }
}

// WithSleep injects the sleep function used for all pauses.
func WithSleep(sleep SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

func applyOptions(opts []Option) options {
	o := options{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepWithContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SleepOf returns the sleep function the given options select, defaulting to
// the context-aware real sleep. Callers use it to share one injected sleep
// between a Limiter and ad-hoc backoff waits.
func SleepOf(opts ...Option) SleepFunc {
	return applyOptions(opts).sleep
}

// NewLimiter creates a Limiter with the given pacing configuration.
func NewLimiter(cfg Config, opts ...Option) *Limiter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	o := applyOptions(opts)
	return &Limiter{cfg: cfg, rnd: o.rnd, sleep: o.sleep}
}

// Wait blocks for a random delay before an upstream call. After every
// BatchSize calls it inserts the longer batch pause as well.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	delay := l.cfg.Delay.draw(l.rnd)
	l.calls++
	batch := l.calls%l.cfg.BatchSize == 0
	var pause time.Duration
	if batch {
		pause = l.cfg.BatchPause.draw(l.rnd)
	}
	l.mu.Unlock()

	if err := l.sleep(ctx, delay); err != nil {
		return err
	}
	if batch {
		return l.sleep(ctx, pause)
	}
	return nil
}

// Calls returns how many Wait calls have completed. Used by tests.
func (l *Limiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

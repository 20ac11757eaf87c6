package collector

import (
	"errors"

	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
)

// Collector error taxonomy. Rate-limited, forbidden, and transient upstream
// failures are recovered inside a page fetch via the retry policy; only the
// conditions below escape to the orchestrator.
var (
	// ErrFetchExhausted means a page fetch used up its retry budget (or hit
	// the forbidden ceiling). It terminates the page walk early and
	// downgrades the run to PARTIAL, never FAILED.
	ErrFetchExhausted = errors.New("page fetch retries exhausted")

	// ErrCancelled means a best-effort cancellation was observed at a page
	// boundary. The run stops and is marked PARTIAL.
	ErrCancelled = errors.New("collection run cancelled")

	// errRemovedUpstream marks a work the upstream no longer serves. The
	// metadata-update mode maps it to the configured invalid-artwork action.
	errRemovedUpstream = errors.New("work removed upstream")
)

// isAuthFailure reports whether an upstream error is a credential refresh
// failure, which fails the whole run rather than one page.
func isAuthFailure(err error) bool {
	return errors.Is(err, pixiv.ErrAuthFailed)
}

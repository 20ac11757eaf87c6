package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
	"github.com/yuzukisa/pixhive/internal/throttle"
)

// IllustFetch fetches one illustration page at the given offset.
type IllustFetch func(ctx context.Context, offset int) (*pixiv.IllustPage, error)

// IllustVisit handles one fetched page. Returning stop=true ends the walk
// after this page; returning an error aborts it.
type IllustVisit func(page *pixiv.IllustPage, offset int) (stop bool, err error)

// UserFetch fetches one followed-user page at the given offset.
type UserFetch func(ctx context.Context, offset int) (*pixiv.UserPage, error)

// UserVisit handles one fetched user page.
type UserVisit func(page *pixiv.UserPage, offset int) (stop bool, err error)

// PageWalker walks a paginated upstream listing strictly sequentially,
// applying the throttle before each call and the retry policy's classified
// backoff on failure. A walk ends when the upstream reports no further pages,
// the visit callback stops it, the offset cap is reached, or cancellation is
// observed at a page boundary.
//
// All retries are local to one page: exhausting the attempt budget surfaces
// ErrFetchExhausted and no retry state crosses page boundaries.
type PageWalker struct {
	limiter    *throttle.Limiter
	policy     *throttle.Policy
	sleep      throttle.SleepFunc
	maxRetries int
	maxOffset  int
	logger     *slog.Logger
}

// NewPageWalker creates a PageWalker. maxOffset <= 0 disables the offset cap.
func NewPageWalker(
	limiter *throttle.Limiter,
	policy *throttle.Policy,
	sleep throttle.SleepFunc,
	maxRetries int,
	maxOffset int,
	logger *slog.Logger,
) *PageWalker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &PageWalker{
		limiter:    limiter,
		policy:     policy,
		sleep:      sleep,
		maxRetries: maxRetries,
		maxOffset:  maxOffset,
		logger:     logger,
	}
}

// WalkIllusts drives an illustration listing from offset 0.
func (w *PageWalker) WalkIllusts(ctx context.Context, fetch IllustFetch, visit IllustVisit) error {
	offset := 0
	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if w.maxOffset > 0 && offset >= w.maxOffset {
			w.logger.Info("offset cap reached, stopping walk", "offset", offset)
			return nil
		}

		page, err := w.fetchIllustPage(ctx, fetch, offset)
		if err != nil {
			return err
		}

		stop, err := visit(page, offset)
		if err != nil {
			return err
		}
		if stop || page.NextOffset == nil || len(page.Illusts) == 0 {
			return nil
		}
		offset = *page.NextOffset
	}
}

// WalkUsers drives the followed-users listing from offset 0.
func (w *PageWalker) WalkUsers(ctx context.Context, fetch UserFetch, visit UserVisit) error {
	offset := 0
	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if w.maxOffset > 0 && offset >= w.maxOffset {
			w.logger.Info("offset cap reached, stopping walk", "offset", offset)
			return nil
		}

		page, err := w.fetchUserPage(ctx, fetch, offset)
		if err != nil {
			return err
		}

		stop, err := visit(page, offset)
		if err != nil {
			return err
		}
		if stop || page.NextOffset == nil || len(page.UserPreviews) == 0 {
			return nil
		}
		offset = *page.NextOffset
	}
}

func (w *PageWalker) fetchIllustPage(ctx context.Context, fetch IllustFetch, offset int) (*pixiv.IllustPage, error) {
	var page *pixiv.IllustPage
	err := w.fetchWithRetry(ctx, offset, func(ctx context.Context) error {
		var err error
		page, err = fetch(ctx, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (w *PageWalker) fetchUserPage(ctx context.Context, fetch UserFetch, offset int) (*pixiv.UserPage, error) {
	var page *pixiv.UserPage
	err := w.fetchWithRetry(ctx, offset, func(ctx context.Context) error {
		var err error
		page, err = fetch(ctx, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// fetchWithRetry runs one page fetch under throttle plus classified backoff.
// Credential refresh failure is fatal for the whole run and bypasses the
// retry budget.
func (w *PageWalker) fetchWithRetry(ctx context.Context, offset int, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return ErrCancelled
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if isAuthFailure(err) {
			return err
		}

		lastErr = err
		class := throttle.Classify(pixiv.StatusOf(err))
		w.logger.Warn("page fetch failed",
			"offset", offset,
			"attempt", attempt,
			"max_attempts", w.maxRetries,
			"class", class.String(),
			"error", err)

		if attempt == w.maxRetries {
			break
		}
		if err := w.sleep(ctx, w.policy.BackoffFor(class)); err != nil {
			return ErrCancelled
		}
	}
	return fmt.Errorf("%w: offset %d: %v", ErrFetchExhausted, offset, lastErr)
}

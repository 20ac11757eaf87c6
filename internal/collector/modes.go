package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
	"github.com/yuzukisa/pixhive/internal/store"
	"github.com/yuzukisa/pixhive/internal/throttle"
)

// rankingPageSize is the upstream's fixed ranking page length; the walker's
// numeric offset maps onto ranking page numbers through it.
const rankingPageSize = 30

func rankingPeriod(s string) (pixiv.RankingPeriod, error) {
	switch s {
	case "daily", "":
		return pixiv.RankingDaily, nil
	case "weekly":
		return pixiv.RankingWeekly, nil
	case "monthly":
		return pixiv.RankingMonthly, nil
	default:
		return "", fmt.Errorf("unknown ranking period %q", s)
	}
}

// runRanking walks the curated ranking listing and stores every work on the
// first N pages unconditionally.
func (o *Orchestrator) runRanking(ctx context.Context, r *run, period string) (string, error) {
	p, err := rankingPeriod(period)
	if err != nil {
		return "", err
	}

	pagesFetched := 0
	walkErr := r.walker.WalkIllusts(ctx,
		func(ctx context.Context, offset int) (*pixiv.IllustPage, error) {
			return o.upstream.FetchRanking(ctx, p, offset/rankingPageSize)
		},
		func(page *pixiv.IllustPage, _ int) (bool, error) {
			if _, err := r.persistIllusts(ctx, page.Illusts, domain.LogTypeRankingWorks); err != nil {
				return false, err
			}
			pagesFetched++
			return pagesFetched >= r.set.rankingPages, nil
		})

	msg := fmt.Sprintf("%s ranking: stored %d works over %d pages", p, r.log.ArtworksCount, pagesFetched)
	return msg, walkErr
}

// runFollowSync refreshes the FollowedUser set from the upstream follow
// listing. Users who unfollowed are never removed. The walk stops at the
// first page containing no unknown users, since the listing is newest first.
func (o *Orchestrator) runFollowSync(ctx context.Context, r *run) (string, error) {
	newUsers := 0
	walkErr := r.walker.WalkUsers(ctx,
		func(ctx context.Context, offset int) (*pixiv.UserPage, error) {
			return o.upstream.FetchFollowedUsers(ctx, offset)
		},
		func(page *pixiv.UserPage, _ int) (bool, error) {
			newOnPage := 0
			for _, preview := range page.UserPreviews {
				user, err := domain.NewFollowedUser(preview.User.ID, preview.User.Name)
				if err != nil {
					o.logger.Warn("skipping invalid followed user", "external_id", preview.User.ID, "error", err)
					continue
				}
				user.AvatarURL = preview.User.ProfileImageURLs.Medium

				created, err := o.follows.Upsert(ctx, user)
				if err != nil {
					if store.IsUnavailableError(err) {
						return false, err
					}
					o.logger.Warn("failed to store followed user", "external_id", user.ExternalID, "error", err)
					continue
				}
				if created {
					newOnPage++
				}
			}
			newUsers += newOnPage
			r.addProgress(ctx, newOnPage)
			return newOnPage == 0 && len(page.UserPreviews) > 0, nil
		})

	return fmt.Sprintf("follow sync: %d new users", newUsers), walkErr
}

// runFollowNewWorks walks the followed-authors feed newest first and stores
// works until it reaches the position covered by an earlier follow run.
// A work already stored by a ranking run does not stop the walk; it is
// re-attributed to the follow source and the walk continues past it.
func (o *Orchestrator) runFollowNewWorks(ctx context.Context, r *run) (string, error) {
	stored := 0
	walkErr := r.walker.WalkIllusts(ctx,
		func(ctx context.Context, offset int) (*pixiv.IllustPage, error) {
			return o.upstream.FetchFollowedWorks(ctx, offset)
		},
		func(page *pixiv.IllustPage, _ int) (bool, error) {
			for i := range page.Illusts {
				il := &page.Illusts[i]

				existing, err := o.artworks.GetByExternalID(ctx, il.ID)
				switch {
				case err == nil:
					if existing.CollectSource == domain.LogTypeFollowNewWorks ||
						existing.CollectSource == domain.LogTypeInitialBackfill {
						return true, nil
					}
					if err := o.artworks.SetCollectSource(ctx, il.ID, domain.LogTypeFollowNewWorks); err != nil {
						if store.IsUnavailableError(err) {
							return false, err
						}
						o.logger.Warn("failed to re-attribute artwork", "external_id", il.ID, "error", err)
					}
				case store.IsNotFoundError(err):
					n, err := r.persistIllusts(ctx, []pixiv.Illust{*il}, domain.LogTypeFollowNewWorks)
					if err != nil {
						return false, err
					}
					stored += n
				case store.IsUnavailableError(err):
					return false, err
				default:
					o.logger.Warn("failed to look up artwork", "external_id", il.ID, "error", err)
				}
			}
			return false, nil
		})

	if walkErr == nil {
		o.markFollowsSynced(ctx)
	}
	return fmt.Sprintf("followed feed: %d new works", stored), walkErr
}

// markFollowsSynced records the feed position for every followed user after a
// clean feed walk. Best effort: a miss only widens the next walk.
func (o *Orchestrator) markFollowsSynced(ctx context.Context) {
	users, err := o.follows.List(ctx)
	if err != nil {
		o.logger.Warn("failed to list followed users for sync stamp", "error", err)
		return
	}
	now := o.now().UTC()
	for _, user := range users {
		if err := o.follows.SetSynced(ctx, user.ExternalID, now); err != nil {
			o.logger.Warn("failed to stamp followed user", "external_id", user.ExternalID, "error", err)
		}
	}
}

// runBackfill walks the full history of every followed user whose backfill is
// still pending, bounded below by January 1st of (current year - backtrack
// years). One user's exhausted walk downgrades the run but does not stop the
// remaining users.
func (o *Orchestrator) runBackfill(ctx context.Context, r *run) (string, error) {
	users, err := o.follows.ListPendingBackfill(ctx)
	if err != nil {
		return "", err
	}

	bound := time.Date(o.now().Year()-r.set.backtrackYears, time.January, 1, 0, 0, 0, 0, time.UTC)
	stored, completed := 0, 0

	for _, user := range users {
		walkErr := r.walker.WalkIllusts(ctx,
			func(ctx context.Context, offset int) (*pixiv.IllustPage, error) {
				return o.upstream.FetchUserWorks(ctx, user.ExternalID, offset)
			},
			func(page *pixiv.IllustPage, _ int) (bool, error) {
				inRange := make([]pixiv.Illust, 0, len(page.Illusts))
				reachedBound := false
				for _, il := range page.Illusts {
					if il.CreateDate.Before(bound) {
						reachedBound = true
						continue
					}
					inRange = append(inRange, il)
				}
				n, err := r.persistIllusts(ctx, inRange, domain.LogTypeInitialBackfill)
				if err != nil {
					return false, err
				}
				stored += n
				return reachedBound, nil
			})

		switch {
		case walkErr == nil:
			if err := o.follows.SetBackfillCompleted(ctx, user.ExternalID); err != nil {
				o.logger.Warn("failed to mark backfill completed", "external_id", user.ExternalID, "error", err)
			} else {
				completed++
			}
		case errors.Is(walkErr, ErrFetchExhausted):
			r.partial = true
			o.logger.Warn("backfill walk exhausted, moving to next user",
				"external_id", user.ExternalID, "error", walkErr)
		default:
			return fmt.Sprintf("backfill: %d works, %d of %d users completed", stored, completed, len(users)), walkErr
		}
	}

	return fmt.Sprintf("backfill: %d works, %d of %d users completed", stored, completed, len(users)), nil
}

// runCustomRanking runs the scoring pipeline per configured keyword. Each
// keyword's accepted works are persisted as soon as its walk ends, never
// batched across keywords, so progress survives a failure on a later keyword.
func (o *Orchestrator) runCustomRanking(ctx context.Context, r *run, keywords []string) (string, error) {
	if len(keywords) == 0 {
		keywords = r.set.keywords
	}
	if len(keywords) == 0 {
		return "custom ranking: no keywords configured", nil
	}

	filter := NewScoreFilter(r.set.score, o.now)
	total := 0

	for _, keyword := range keywords {
		accepted := make([]pixiv.Illust, 0, keywordAcceptLimit)

		walkErr := r.walker.WalkIllusts(ctx,
			func(ctx context.Context, offset int) (*pixiv.IllustPage, error) {
				return o.upstream.Search(ctx, keyword, offset)
			},
			func(page *pixiv.IllustPage, _ int) (bool, error) {
				var oldest time.Time
				for i := range page.Illusts {
					il := &page.Illusts[i]
					if oldest.IsZero() || il.CreateDate.Before(oldest) {
						oldest = il.CreateDate
					}
					if verdict := filter.Evaluate(il); verdict.Accepted {
						accepted = append(accepted, *il)
					}
				}
				if len(accepted) > keywordAcceptLimit {
					return true, nil
				}
				if !oldest.IsZero() && o.now().Sub(oldest) > keywordMaxAge {
					return true, nil
				}
				return false, nil
			})

		n, persistErr := r.persistIllusts(ctx, accepted, domain.LogTypeCustomRanking)
		total += n
		if persistErr != nil {
			return fmt.Sprintf("custom ranking: %d works accepted before persistence failure", total), persistErr
		}

		switch {
		case walkErr == nil:
		case errors.Is(walkErr, ErrFetchExhausted):
			r.partial = true
			o.logger.Warn("keyword walk exhausted, moving to next keyword",
				"keyword", keyword, "error", walkErr)
		default:
			return fmt.Sprintf("custom ranking: %d works accepted across %d keywords", total, len(keywords)), walkErr
		}
	}

	return fmt.Sprintf("custom ranking: %d works accepted across %d keywords", total, len(keywords)), nil
}

// runMetadataUpdate re-fetches stale-prone artworks oldest first, refreshing
// engagement numbers in place. Works the upstream no longer serves get the
// configured invalid-artwork action applied.
func (o *Orchestrator) runMetadataUpdate(ctx context.Context, r *run) (string, error) {
	cutoff := o.now().UTC().AddDate(0, 0, -r.set.updateIntervalDays)
	artworks, err := o.artworks.FindRefreshable(ctx, cutoff, r.set.updateMaxPerRun)
	if err != nil {
		return "", err
	}

	refreshed, invalid := 0, 0
	for _, artwork := range artworks {
		il, err := r.fetchDetail(ctx, artwork.ExternalID)
		switch {
		case err == nil:
			updated := r.refreshedArtwork(artwork, il)
			if _, err := o.artworks.Upsert(ctx, updated); err != nil {
				if store.IsUnavailableError(err) {
					return fmt.Sprintf("metadata refresh: %d refreshed before persistence failure", refreshed), err
				}
				o.logger.Warn("failed to store refreshed artwork", "external_id", artwork.ExternalID, "error", err)
				continue
			}
			refreshed++
			r.addProgress(ctx, 1)

		case errors.Is(err, errRemovedUpstream):
			if err := o.applyInvalidAction(ctx, r.set.invalidAction, artwork.ExternalID); err != nil {
				if store.IsUnavailableError(err) {
					return fmt.Sprintf("metadata refresh: %d refreshed before persistence failure", refreshed), err
				}
				o.logger.Warn("failed to apply invalid-artwork action",
					"external_id", artwork.ExternalID, "action", r.set.invalidAction, "error", err)
				continue
			}
			invalid++

		case errors.Is(err, ErrFetchExhausted):
			r.partial = true
			o.logger.Warn("detail fetch exhausted, skipping artwork",
				"external_id", artwork.ExternalID, "error", err)

		default:
			return fmt.Sprintf("metadata refresh: %d refreshed, %d invalid (%s)",
				refreshed, invalid, r.set.invalidAction), err
		}
	}

	return fmt.Sprintf("metadata refresh: %d refreshed, %d invalid (%s)",
		refreshed, invalid, r.set.invalidAction), nil
}

func (o *Orchestrator) applyInvalidAction(ctx context.Context, action string, externalID int64) error {
	switch action {
	case InvalidActionDelete:
		return o.artworks.Delete(ctx, externalID)
	case InvalidActionKeep:
		return nil
	default:
		return o.artworks.MarkStale(ctx, externalID, "removed upstream")
	}
}

// runLogCleanup prunes collection logs older than the retention window.
func (o *Orchestrator) runLogCleanup(ctx context.Context, r *run) (string, error) {
	cutoff := o.now().UTC().AddDate(0, 0, -r.set.logRetentionDays)
	deleted, err := o.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return "", err
	}
	r.addProgress(ctx, deleted)
	return fmt.Sprintf("log cleanup: removed %d logs older than %d days", deleted, r.set.logRetentionDays), nil
}

// persistIllusts upserts a batch of works and advances the run's progress
// count. A single-item persistence failure is logged and skipped; a systemic
// outage aborts the batch.
func (r *run) persistIllusts(ctx context.Context, illusts []pixiv.Illust, source domain.LogType) (int, error) {
	stored := 0
	for i := range illusts {
		artwork := r.artworkFromIllust(&illusts[i], source)
		if err := artwork.Validate(); err != nil {
			r.o.logger.Warn("skipping invalid upstream work", "external_id", illusts[i].ID, "error", err)
			continue
		}
		if _, err := r.o.artworks.Upsert(ctx, artwork); err != nil {
			if store.IsUnavailableError(err) {
				return stored, err
			}
			r.o.logger.Warn("failed to store artwork", "external_id", artwork.ExternalID, "error", err)
			continue
		}
		stored++
	}
	r.addProgress(ctx, stored)
	return stored, nil
}

func (r *run) artworkFromIllust(il *pixiv.Illust, source domain.LogType) *domain.Artwork {
	now := r.o.now().UTC()

	url := il.ImageURLs.Large
	if url == "" {
		url = il.ImageURLs.Medium
	}

	var artworkType domain.ArtworkType
	switch il.Type {
	case "illust":
		artworkType = domain.ArtworkTypeIllust
	case "manga":
		artworkType = domain.ArtworkTypeManga
	default:
		artworkType = domain.ArtworkTypeOther
	}

	return &domain.Artwork{
		ID:              uuid.New(),
		ExternalID:      il.ID,
		Title:           il.Title,
		AuthorID:        il.User.ID,
		AuthorName:      il.User.Name,
		URL:             url,
		PageCount:       il.PageCount,
		TotalBookmarks:  il.TotalBookmarks,
		TotalViews:      il.TotalView,
		PostedAt:        il.CreateDate,
		Tags:            il.TagNames(),
		IsR18:           il.R18(),
		IsAIFlagged:     il.AIFlagged(),
		Type:            artworkType,
		CollectSource:   source,
		CreatedAt:       now,
		LastRefreshedAt: now,
	}
}

// refreshedArtwork rebuilds the stored row from a fresh detail fetch, keeping
// the original identity and collection attribution.
func (r *run) refreshedArtwork(old *domain.Artwork, il *pixiv.Illust) *domain.Artwork {
	updated := r.artworkFromIllust(il, old.CollectSource)
	updated.ID = old.ID
	updated.CreatedAt = old.CreatedAt
	updated.Stale = false
	updated.StaleReason = ""
	return updated
}

// fetchDetail fetches one work's detail under the run's pacing and retry
// policy. A 404 is not retried; it means the work is gone upstream.
func (r *run) fetchDetail(ctx context.Context, externalID int64) (*pixiv.Illust, error) {
	var lastErr error
	for attempt := 1; attempt <= r.set.maxRetries; attempt++ {
		if err := r.walker.limiter.Wait(ctx); err != nil {
			return nil, ErrCancelled
		}

		il, err := r.o.upstream.FetchIllust(ctx, externalID)
		if err == nil {
			return il, nil
		}
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		if isAuthFailure(err) {
			return nil, err
		}

		var apiErr *pixiv.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, errRemovedUpstream
		}

		lastErr = err
		if attempt == r.set.maxRetries {
			break
		}
		class := throttle.Classify(pixiv.StatusOf(err))
		if err := r.walker.sleep(ctx, r.walker.policy.BackoffFor(class)); err != nil {
			return nil, ErrCancelled
		}
	}
	return nil, fmt.Errorf("%w: work %d: %v", ErrFetchExhausted, externalID, lastErr)
}

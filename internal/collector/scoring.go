package collector

import (
	"strings"
	"time"

	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
)

// ScoreConfig holds the quality-scoring tunables for custom-ranking runs.
type ScoreConfig struct {
	// MinAgeHours rejects works posted too recently for their engagement
	// numbers to mean anything.
	MinAgeHours float64

	// MinBookmarks rejects works below this bookmark count outright,
	// regardless of computed score.
	MinBookmarks int

	// MaxPages rejects multi-page works above this page count.
	MaxPages int

	// FreshThreshold is the accept threshold for works younger than a day.
	FreshThreshold float64

	// AgedThreshold is the accept threshold for works a day old or older.
	AgedThreshold float64

	// AIFreshFactor and AIAgedFactor scale the score of AI-flagged works,
	// keyed on the same one-day age split as the thresholds.
	AIFreshFactor float64
	AIAgedFactor  float64
}

// DefaultScoreConfig returns the standard scoring tunables.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		MinAgeHours:    3,
		MinBookmarks:   300,
		MaxPages:       5,
		FreshThreshold: 9.0,
		AgedThreshold:  3.2,
		AIFreshFactor:  0.45,
		AIAgedFactor:   0.65,
	}
}

// Rejection reasons reported by ScoreFilter.Evaluate.
const (
	ReasonTooNew         = "too_new"
	ReasonFewBookmarks   = "too_few_bookmarks"
	ReasonR18            = "r18"
	ReasonTooManyPages   = "too_many_pages"
	ReasonNotIllust      = "not_illustration"
	ReasonBelowThreshold = "below_threshold"
)

// comicTagMarkers identify works tagged as serialized comics rather than
// standalone illustrations.
var comicTagMarkers = []string{"漫画", "マンガ", "コミック", "manga", "comic"}

// Verdict is the outcome of scoring one candidate work.
type Verdict struct {
	Accepted bool
	Score    float64
	Reason   string
}

// ScoreFilter decides whether a searched work is worth keeping. Hard
// rejections (age, bookmarks, restriction, format) are checked in order
// before any score is computed; surviving works are scored by bookmark
// velocity weighted by the bookmark-to-view ratio.
type ScoreFilter struct {
	cfg ScoreConfig
	now func() time.Time
}

// NewScoreFilter creates a ScoreFilter. A nil now func uses time.Now.
func NewScoreFilter(cfg ScoreConfig, now func() time.Time) *ScoreFilter {
	if now == nil {
		now = time.Now
	}
	return &ScoreFilter{cfg: cfg, now: now}
}

// Evaluate scores one candidate work.
func (f *ScoreFilter) Evaluate(il *pixiv.Illust) Verdict {
	hours := f.now().Sub(il.CreateDate).Hours()

	switch {
	case hours < f.cfg.MinAgeHours:
		return Verdict{Reason: ReasonTooNew}
	case il.TotalBookmarks < f.cfg.MinBookmarks:
		return Verdict{Reason: ReasonFewBookmarks}
	case il.R18():
		return Verdict{Reason: ReasonR18}
	case il.PageCount > f.cfg.MaxPages:
		return Verdict{Reason: ReasonTooManyPages}
	case il.Type != "illust" || hasComicTag(il):
		return Verdict{Reason: ReasonNotIllust}
	}

	score := f.Score(il, hours)
	threshold := f.cfg.FreshThreshold
	if hours >= 24 {
		threshold = f.cfg.AgedThreshold
	}
	if score < threshold {
		return Verdict{Score: score, Reason: ReasonBelowThreshold}
	}
	return Verdict{Accepted: true, Score: score}
}

// Score computes bookmarks/(hours+2) weighted by the bookmark-to-view
// ratio, with the AI penalty applied last. It does not apply the hard
// rejections; Evaluate does.
func (f *ScoreFilter) Score(il *pixiv.Illust, hours float64) float64 {
	if il.TotalView <= 0 {
		return 0
	}
	bookmarks := float64(il.TotalBookmarks)
	score := bookmarks / (hours + 2) * (bookmarks / float64(il.TotalView))

	if il.AIFlagged() {
		if hours < 24 {
			score *= f.cfg.AIFreshFactor
		} else {
			score *= f.cfg.AIAgedFactor
		}
	}
	return score
}

func hasComicTag(il *pixiv.Illust) bool {
	for _, tag := range il.Tags {
		name := strings.ToLower(tag.Name)
		for _, marker := range comicTagMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}

package collector

import (
	"context"

	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
)

// Upstream is the slice of the platform API client the collector drives.
// *pixiv.Client satisfies it; tests substitute fakes.
type Upstream interface {
	FetchRanking(ctx context.Context, period pixiv.RankingPeriod, page int) (*pixiv.IllustPage, error)
	FetchUserWorks(ctx context.Context, userID int64, offset int) (*pixiv.IllustPage, error)
	FetchFollowedWorks(ctx context.Context, offset int) (*pixiv.IllustPage, error)
	FetchFollowedUsers(ctx context.Context, offset int) (*pixiv.UserPage, error)
	Search(ctx context.Context, keyword string, offset int) (*pixiv.IllustPage, error)
	FetchIllust(ctx context.Context, illustID int64) (*pixiv.Illust, error)
}

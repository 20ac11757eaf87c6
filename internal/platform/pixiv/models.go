package pixiv

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RankingPeriod selects which curated ranking to fetch.
type RankingPeriod string

// Supported ranking periods.
const (
	RankingDaily   RankingPeriod = "day"
	RankingWeekly  RankingPeriod = "week"
	RankingMonthly RankingPeriod = "month"
)

// aiTypeFlagged is the illust_ai_type value the upstream assigns to
// AI-generated works.
const aiTypeFlagged = 2

// Tag is one tag on an illustration.
type Tag struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name,omitempty"`
}

// User is the author block embedded in illustration payloads and follow
// listings.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Account   string `json:"account"`
	AvatarURL string `json:"-"`

	ProfileImageURLs struct {
		Medium string `json:"medium"`
	} `json:"profile_image_urls"`
}

// ImageURLs holds the size variants of an illustration image.
type ImageURLs struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Illust is one illustration as returned by the upstream listing and detail
// endpoints.
type Illust struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Type           string    `json:"type"`
	User           User      `json:"user"`
	Tags           []Tag     `json:"tags"`
	CreateDate     time.Time `json:"create_date"`
	PageCount      int       `json:"page_count"`
	TotalView      int       `json:"total_view"`
	TotalBookmarks int       `json:"total_bookmarks"`
	XRestrict      int       `json:"x_restrict"`
	IllustAIType   int       `json:"illust_ai_type"`
	ImageURLs      ImageURLs `json:"image_urls"`
}

// R18 reports whether the work is age-restricted, either by the upstream
// restriction flag or by tag.
func (i *Illust) R18() bool {
	if i.XRestrict > 0 {
		return true
	}
	for _, tag := range i.Tags {
		t := strings.ToUpper(tag.Name)
		if strings.Contains(t, "R-18") || strings.Contains(t, "R18") {
			return true
		}
	}
	return false
}

// AIFlagged reports whether the upstream marks the work as AI-generated,
// either by the dedicated field or by tag.
func (i *Illust) AIFlagged() bool {
	if i.IllustAIType == aiTypeFlagged {
		return true
	}
	for _, tag := range i.Tags {
		t := strings.ToUpper(tag.Name)
		if t == "AI" || strings.Contains(t, "AI生成") || strings.Contains(t, "AIイラスト") {
			return true
		}
	}
	return false
}

// TagNames returns the plain tag strings.
func (i *Illust) TagNames() []string {
	names := make([]string, 0, len(i.Tags))
	for _, t := range i.Tags {
		names = append(names, t.Name)
	}
	return names
}

// IllustPage is one page of an illustration listing. NextOffset is nil when
// the upstream reports no further pages.
type IllustPage struct {
	Illusts    []Illust `json:"illusts"`
	NextURL    string   `json:"next_url"`
	NextOffset *int     `json:"-"`
}

// UserPreview is one entry in the followed-users listing.
type UserPreview struct {
	User User `json:"user"`
}

// UserPage is one page of the followed-users listing.
type UserPage struct {
	UserPreviews []UserPreview `json:"user_previews"`
	NextURL      string        `json:"next_url"`
	NextOffset   *int          `json:"-"`
}

// illustDetail wraps the single-illustration detail response.
type illustDetail struct {
	Illust Illust `json:"illust"`
}

// parseNextOffset extracts the numeric offset query parameter from an
// upstream continuation URL. Returns nil when the URL is empty or carries no
// offset, which callers treat as "no further pages".
func parseNextOffset(nextURL string) *int {
	if nextURL == "" {
		return nil
	}
	u, err := url.Parse(nextURL)
	if err != nil {
		return nil
	}
	raw := u.Query().Get("offset")
	if raw == "" {
		return nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &offset
}

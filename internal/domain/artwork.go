package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ArtworkType categorizes an artwork by upstream media type.
type ArtworkType string

// Possible artwork types.
const (
	ArtworkTypeIllust ArtworkType = "illust"
	ArtworkTypeManga  ArtworkType = "manga"
	ArtworkTypeOther  ArtworkType = "other"
)

// Common validation errors for Artwork.
var (
	ErrEmptyArtworkID         = errors.New("artwork ID cannot be empty")
	ErrEmptyArtworkExternalID = errors.New("artwork external ID cannot be empty")
	ErrEmptyArtworkAuthorID   = errors.New("artwork author ID cannot be empty")
	ErrInvalidArtworkType     = errors.New("invalid artwork type")
)

// Artwork is one collected artwork's metadata. ExternalID is the upstream
// identifier and is unique per row; refreshes overwrite the mutable fields in
// place. Artworks are never deleted by default: when the upstream copy
// disappears they are marked stale (or deleted, depending on the configured
// invalid-artwork action).
type Artwork struct {
	ID             uuid.UUID   `json:"id"`
	ExternalID     int64       `json:"external_id"`
	Title          string      `json:"title"`
	AuthorID       int64       `json:"author_id"`
	AuthorName     string      `json:"author_name"`
	URL            string      `json:"url"`
	PageCount      int         `json:"page_count"`
	TotalBookmarks int         `json:"total_bookmarks"`
	TotalViews     int         `json:"total_views"`
	PostedAt       time.Time   `json:"posted_at"`
	Tags           []string    `json:"tags"`
	IsR18          bool        `json:"is_r18"`
	IsAIFlagged    bool        `json:"is_ai_flagged"`
	Type           ArtworkType `json:"type"`
	Stale          bool        `json:"stale"`
	StaleReason    string      `json:"stale_reason,omitempty"`

	// CollectSource records which collection mode first stored the artwork.
	// The followed-feed walk uses it to tell "reached the previous sync
	// position" apart from "seen in a ranking before".
	CollectSource LogType `json:"collect_source"`

	CreatedAt       time.Time `json:"created_at"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// NewArtwork creates an Artwork with a fresh internal ID and timestamps.
func NewArtwork(externalID, authorID int64, title string, source LogType) (*Artwork, error) {
	now := time.Now().UTC()
	artwork := &Artwork{
		ID:              uuid.New(),
		ExternalID:      externalID,
		Title:           title,
		AuthorID:        authorID,
		Type:            ArtworkTypeIllust,
		PageCount:       1,
		CollectSource:   source,
		CreatedAt:       now,
		LastRefreshedAt: now,
	}

	if err := artwork.Validate(); err != nil {
		return nil, err
	}

	return artwork, nil
}

// Validate checks if the Artwork has valid data.
func (a *Artwork) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyArtworkID
	}
	if a.ExternalID == 0 {
		return ErrEmptyArtworkExternalID
	}
	if a.AuthorID == 0 {
		return ErrEmptyArtworkAuthorID
	}
	if !isValidArtworkType(a.Type) {
		return ErrInvalidArtworkType
	}
	return nil
}

// MarkStale flags the artwork as no longer retrievable upstream.
func (a *Artwork) MarkStale(reason string) {
	a.Stale = true
	a.StaleReason = reason
	a.LastRefreshedAt = time.Now().UTC()
}

// HasTag reports whether the artwork carries the given tag (exact match).
func (a *Artwork) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func isValidArtworkType(t ArtworkType) bool {
	switch t {
	case ArtworkTypeIllust, ArtworkTypeManga, ArtworkTypeOther:
		return true
	default:
		return false
	}
}

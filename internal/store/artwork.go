package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/yuzukisa/pixhive/internal/domain"
)

// ArtworkStore defines the interface for artwork persistence.
type ArtworkStore interface {
	// Upsert stores the artwork, inserting by external ID or overwriting the
	// mutable metadata fields of an existing row. Returns true when a new row
	// was created. Upserts on disjoint external IDs are safe to run
	// concurrently.
	Upsert(ctx context.Context, artwork *domain.Artwork) (created bool, err error)

	// GetByExternalID retrieves an artwork by its upstream identifier.
	// Returns ErrArtworkNotFound if it does not exist.
	GetByExternalID(ctx context.Context, externalID int64) (*domain.Artwork, error)

	// FindRefreshable returns up to limit non-stale artworks whose
	// last_refreshed_at is older than the cutoff, oldest first. Used by the
	// metadata-update mode.
	FindRefreshable(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Artwork, error)

	// MarkStale flags an artwork as no longer retrievable upstream.
	// Returns ErrArtworkNotFound if it does not exist.
	MarkStale(ctx context.Context, externalID int64, reason string) error

	// Delete removes an artwork. Only the metadata-update mode uses this,
	// and only under the "delete" invalid-artwork action.
	Delete(ctx context.Context, externalID int64) error

	// SetCollectSource re-attributes an existing artwork to a different
	// collection mode (ranking rows promoted to follow rows).
	SetCollectSource(ctx context.Context, externalID int64, source domain.LogType) error

	// WithTx returns a new ArtworkStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ArtworkStore
}

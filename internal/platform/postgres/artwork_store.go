package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
	"github.com/yuzukisa/pixhive/internal/store"
)

// PostgresArtworkStore implements the store.ArtworkStore interface using
// PostgreSQL.
type PostgresArtworkStore struct {
	db store.DBTX
}

// NewPostgresArtworkStore creates a new PostgresArtworkStore.
func NewPostgresArtworkStore(db store.DBTX) *PostgresArtworkStore {
	return &PostgresArtworkStore{db: db}
}

// WithTx returns a new ArtworkStore instance that uses the provided transaction.
func (s *PostgresArtworkStore) WithTx(tx *sql.Tx) store.ArtworkStore {
	return &PostgresArtworkStore{db: tx}
}

// Upsert stores the artwork keyed by external ID. An existing row keeps its
// internal ID, created_at, and collect_source; all metadata fields are
// overwritten. Per-row upsert atomicity is what makes concurrent runs over
// disjoint external IDs safe.
func (s *PostgresArtworkStore) Upsert(ctx context.Context, artwork *domain.Artwork) (bool, error) {
	log := logger.FromContext(ctx)

	if err := artwork.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := json.Marshal(artwork.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO artworks (
			id, external_id, title, author_id, author_name, url, page_count,
			total_bookmarks, total_views, posted_at, tags, is_r18,
			is_ai_flagged, type, stale, stale_reason, collect_source,
			created_at, last_refreshed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			author_id = EXCLUDED.author_id,
			author_name = EXCLUDED.author_name,
			url = EXCLUDED.url,
			page_count = EXCLUDED.page_count,
			total_bookmarks = EXCLUDED.total_bookmarks,
			total_views = EXCLUDED.total_views,
			posted_at = EXCLUDED.posted_at,
			tags = EXCLUDED.tags,
			is_r18 = EXCLUDED.is_r18,
			is_ai_flagged = EXCLUDED.is_ai_flagged,
			type = EXCLUDED.type,
			stale = EXCLUDED.stale,
			stale_reason = EXCLUDED.stale_reason,
			last_refreshed_at = EXCLUDED.last_refreshed_at
		RETURNING (xmax = 0)
	`

	var created bool
	err = s.db.QueryRowContext(ctx, query,
		artwork.ID,
		artwork.ExternalID,
		artwork.Title,
		artwork.AuthorID,
		artwork.AuthorName,
		artwork.URL,
		artwork.PageCount,
		artwork.TotalBookmarks,
		artwork.TotalViews,
		artwork.PostedAt,
		tags,
		artwork.IsR18,
		artwork.IsAIFlagged,
		artwork.Type,
		artwork.Stale,
		artwork.StaleReason,
		artwork.CollectSource,
		artwork.CreatedAt,
		artwork.LastRefreshedAt,
	).Scan(&created)
	if err != nil {
		log.Error("failed to upsert artwork",
			"external_id", artwork.ExternalID,
			"error", err)
		return false, MapError(err)
	}

	return created, nil
}

// GetByExternalID retrieves an artwork by its upstream identifier.
func (s *PostgresArtworkStore) GetByExternalID(ctx context.Context, externalID int64) (*domain.Artwork, error) {
	query := selectArtwork + ` WHERE external_id = $1`

	artwork, err := scanArtwork(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrArtworkNotFound
		}
		return nil, MapError(err)
	}
	return artwork, nil
}

// FindRefreshable returns non-stale artworks due for a metadata refresh,
// oldest first.
func (s *PostgresArtworkStore) FindRefreshable(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Artwork, error) {
	query := selectArtwork + `
		WHERE stale = FALSE AND last_refreshed_at < $1
		ORDER BY last_refreshed_at ASC, external_id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var artworks []*domain.Artwork
	for rows.Next() {
		artwork, err := scanArtwork(rows)
		if err != nil {
			return nil, MapError(err)
		}
		artworks = append(artworks, artwork)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return artworks, nil
}

// MarkStale flags an artwork as no longer retrievable upstream.
func (s *PostgresArtworkStore) MarkStale(ctx context.Context, externalID int64, reason string) error {
	query := `
		UPDATE artworks
		SET stale = TRUE, stale_reason = $1, last_refreshed_at = $2
		WHERE external_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, reason, time.Now().UTC(), externalID)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrArtworkNotFound)
}

// Delete removes an artwork row.
func (s *PostgresArtworkStore) Delete(ctx context.Context, externalID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artworks WHERE external_id = $1`, externalID)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrArtworkNotFound)
}

// SetCollectSource re-attributes an artwork to a different collection mode.
func (s *PostgresArtworkStore) SetCollectSource(ctx context.Context, externalID int64, source domain.LogType) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE artworks SET collect_source = $1 WHERE external_id = $2`,
		source, externalID)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrArtworkNotFound)
}

const selectArtwork = `
	SELECT id, external_id, title, author_id, author_name, url, page_count,
	       total_bookmarks, total_views, posted_at, tags, is_r18,
	       is_ai_flagged, type, stale, stale_reason, collect_source,
	       created_at, last_refreshed_at
	FROM artworks`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row rowScanner) (*domain.Artwork, error) {
	var (
		artwork domain.Artwork
		tags    []byte
	)
	err := row.Scan(
		&artwork.ID,
		&artwork.ExternalID,
		&artwork.Title,
		&artwork.AuthorID,
		&artwork.AuthorName,
		&artwork.URL,
		&artwork.PageCount,
		&artwork.TotalBookmarks,
		&artwork.TotalViews,
		&artwork.PostedAt,
		&tags,
		&artwork.IsR18,
		&artwork.IsAIFlagged,
		&artwork.Type,
		&artwork.Stale,
		&artwork.StaleReason,
		&artwork.CollectSource,
		&artwork.CreatedAt,
		&artwork.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &artwork.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return &artwork, nil
}

// requireRowAffected converts a zero-row update into notFound.
func requireRowAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
	"github.com/yuzukisa/pixhive/internal/store"
)

// PostgresFollowStore implements the store.FollowStore interface using
// PostgreSQL.
type PostgresFollowStore struct {
	db store.DBTX
}

// NewPostgresFollowStore creates a new PostgresFollowStore.
func NewPostgresFollowStore(db store.DBTX) *PostgresFollowStore {
	return &PostgresFollowStore{db: db}
}

// WithTx returns a new FollowStore instance that uses the provided transaction.
func (s *PostgresFollowStore) WithTx(tx *sql.Tx) store.FollowStore {
	return &PostgresFollowStore{db: tx}
}

// Upsert stores the followed user keyed by external ID. Existing rows keep
// their sync/backfill state; only name and avatar are refreshed.
func (s *PostgresFollowStore) Upsert(ctx context.Context, user *domain.FollowedUser) (bool, error) {
	log := logger.FromContext(ctx)

	if err := user.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO followed_users (
			id, external_id, name, avatar_url, last_synced_at,
			backfill_completed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`

	var created bool
	err := s.db.QueryRowContext(ctx, query,
		user.ID,
		user.ExternalID,
		user.Name,
		user.AvatarURL,
		user.LastSyncedAt,
		user.BackfillCompleted,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&created)
	if err != nil {
		log.Error("failed to upsert followed user",
			"external_id", user.ExternalID,
			"error", err)
		return false, MapError(err)
	}

	return created, nil
}

// GetByExternalID retrieves a followed user by upstream identifier.
func (s *PostgresFollowStore) GetByExternalID(ctx context.Context, externalID int64) (*domain.FollowedUser, error) {
	query := selectFollowedUser + ` WHERE external_id = $1`

	user, err := scanFollowedUser(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrFollowedUserNotFound
		}
		return nil, MapError(err)
	}
	return user, nil
}

// List returns all followed users ordered by creation time.
func (s *PostgresFollowStore) List(ctx context.Context) ([]*domain.FollowedUser, error) {
	return s.list(ctx, selectFollowedUser+` ORDER BY created_at ASC`)
}

// ListPendingBackfill returns followed users still awaiting their historical
// backfill.
func (s *PostgresFollowStore) ListPendingBackfill(ctx context.Context) ([]*domain.FollowedUser, error) {
	return s.list(ctx, selectFollowedUser+` WHERE backfill_completed = FALSE ORDER BY created_at ASC`)
}

// SetSynced records a completed works collection for the user.
func (s *PostgresFollowStore) SetSynced(ctx context.Context, externalID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE followed_users SET last_synced_at = $1, updated_at = $2 WHERE external_id = $3`,
		at.UTC(), time.Now().UTC(), externalID)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrFollowedUserNotFound)
}

// SetBackfillCompleted marks the one-time historical walk as done.
func (s *PostgresFollowStore) SetBackfillCompleted(ctx context.Context, externalID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE followed_users SET backfill_completed = TRUE, updated_at = $1 WHERE external_id = $2`,
		time.Now().UTC(), externalID)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrFollowedUserNotFound)
}

func (s *PostgresFollowStore) list(ctx context.Context, query string, args ...any) ([]*domain.FollowedUser, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var users []*domain.FollowedUser
	for rows.Next() {
		user, err := scanFollowedUser(rows)
		if err != nil {
			return nil, MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return users, nil
}

const selectFollowedUser = `
	SELECT id, external_id, name, avatar_url, last_synced_at,
	       backfill_completed, created_at, updated_at
	FROM followed_users`

func scanFollowedUser(row rowScanner) (*domain.FollowedUser, error) {
	var user domain.FollowedUser
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Name,
		&user.AvatarURL,
		&user.LastSyncedAt,
		&user.BackfillCompleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

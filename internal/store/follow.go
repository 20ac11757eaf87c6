package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/yuzukisa/pixhive/internal/domain"
)

// FollowStore defines the interface for followed-user persistence.
type FollowStore interface {
	// Upsert stores the followed user, inserting by external ID or updating
	// the name/avatar of an existing row. Returns true when a new row was
	// created.
	Upsert(ctx context.Context, user *domain.FollowedUser) (created bool, err error)

	// GetByExternalID retrieves a followed user by upstream identifier.
	// Returns ErrFollowedUserNotFound if it does not exist.
	GetByExternalID(ctx context.Context, externalID int64) (*domain.FollowedUser, error)

	// List returns all followed users ordered by creation time.
	List(ctx context.Context) ([]*domain.FollowedUser, error)

	// ListPendingBackfill returns followed users whose historical backfill
	// has not completed yet.
	ListPendingBackfill(ctx context.Context) ([]*domain.FollowedUser, error)

	// SetSynced records a completed works collection for the user.
	SetSynced(ctx context.Context, externalID int64, at time.Time) error

	// SetBackfillCompleted marks the one-time historical walk as done.
	SetBackfillCompleted(ctx context.Context, externalID int64) error

	// WithTx returns a new FollowStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) FollowStore
}

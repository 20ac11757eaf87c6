package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yuzukisa/pixhive/internal/domain"
)

// CollectionLogStore defines the interface for collection run log persistence.
type CollectionLogStore interface {
	// Create saves a new collection log.
	Create(ctx context.Context, log *domain.CollectionLog) error

	// GetByID retrieves a collection log by ID.
	// Returns ErrCollectionLogNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CollectionLog, error)

	// Update persists the current state of an existing log (status, message,
	// artworks count, finished time). Returns ErrCollectionLogNotFound if the
	// log does not exist.
	Update(ctx context.Context, log *domain.CollectionLog) error

	// List returns logs newest first, optionally filtered by type and/or
	// status, with limit/offset pagination. The returned total is the
	// unpaginated match count.
	List(ctx context.Context, filter LogFilter) ([]*domain.CollectionLog, int, error)

	// DeleteOlderThan removes logs that started before the cutoff and
	// returns the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// WithTx returns a new CollectionLogStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) CollectionLogStore
}

// LogFilter narrows a collection log listing. Zero values mean "no filter";
// a zero Limit defaults to 20.
type LogFilter struct {
	LogType domain.LogType
	Status  domain.LogStatus
	Limit   int
	Offset  int
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
	"github.com/yuzukisa/pixhive/internal/store"
)

// PostgresCollectionLogStore implements the store.CollectionLogStore
// interface using PostgreSQL.
type PostgresCollectionLogStore struct {
	db store.DBTX
}

// NewPostgresCollectionLogStore creates a new PostgresCollectionLogStore.
func NewPostgresCollectionLogStore(db store.DBTX) *PostgresCollectionLogStore {
	return &PostgresCollectionLogStore{db: db}
}

// WithTx returns a new CollectionLogStore instance that uses the provided
// transaction.
func (s *PostgresCollectionLogStore) WithTx(tx *sql.Tx) store.CollectionLogStore {
	return &PostgresCollectionLogStore{db: tx}
}

// Create saves a new collection log.
func (s *PostgresCollectionLogStore) Create(ctx context.Context, log *domain.CollectionLog) error {
	l := logger.FromContext(ctx)

	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO collection_logs (
			id, log_type, status, message, artworks_count, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.LogType,
		log.Status,
		log.Message,
		log.ArtworksCount,
		log.StartedAt,
		log.FinishedAt,
	)
	if err != nil {
		l.Error("failed to create collection log",
			"log_id", log.ID,
			"log_type", log.LogType,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a collection log by ID.
func (s *PostgresCollectionLogStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CollectionLog, error) {
	query := selectCollectionLog + ` WHERE id = $1`

	log, err := scanCollectionLog(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrCollectionLogNotFound
		}
		return nil, MapError(err)
	}
	return log, nil
}

// Update persists the current state of an existing log.
func (s *PostgresCollectionLogStore) Update(ctx context.Context, log *domain.CollectionLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE collection_logs
		SET status = $1, message = $2, artworks_count = $3, finished_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		log.Status,
		log.Message,
		log.ArtworksCount,
		log.FinishedAt,
		log.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return requireRowAffected(result, store.ErrCollectionLogNotFound)
}

// List returns logs newest first with optional type/status filters.
func (s *PostgresCollectionLogStore) List(ctx context.Context, filter store.LogFilter) ([]*domain.CollectionLog, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	where := ` WHERE 1=1`
	args := []any{}
	argn := 1
	if filter.LogType != "" {
		where += fmt.Sprintf(" AND log_type = $%d", argn)
		args = append(args, filter.LogType)
		argn++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, filter.Status)
		argn++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM collection_logs` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	query := selectCollectionLog + where +
		fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", argn, argn+1)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*domain.CollectionLog
	for rows.Next() {
		log, err := scanCollectionLog(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}
	return logs, total, nil
}

// DeleteOlderThan removes logs that started before the cutoff.
func (s *PostgresCollectionLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_logs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

const selectCollectionLog = `
	SELECT id, log_type, status, message, artworks_count, started_at, finished_at
	FROM collection_logs`

func scanCollectionLog(row rowScanner) (*domain.CollectionLog, error) {
	var log domain.CollectionLog
	err := row.Scan(
		&log.ID,
		&log.LogType,
		&log.Status,
		&log.Message,
		&log.ArtworksCount,
		&log.StartedAt,
		&log.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

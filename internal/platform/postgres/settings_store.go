package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/yuzukisa/pixhive/internal/platform/logger"
	"github.com/yuzukisa/pixhive/internal/store"
)

// PostgresSettingsStore implements store.SettingsStore over the
// system_settings table. Every Get hits the database; values are never cached
// in the process, which is what gives runs hot-reload semantics.
type PostgresSettingsStore struct {
	db store.DBTX
}

// NewPostgresSettingsStore creates a new PostgresSettingsStore.
func NewPostgresSettingsStore(db store.DBTX) *PostgresSettingsStore {
	return &PostgresSettingsStore{db: db}
}

// Get returns the raw string value for a key.
func (s *PostgresSettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", store.ErrNotFound
		}
		return "", MapError(err)
	}
	return value, nil
}

// GetInt returns the value parsed as an integer, or fallback.
func (s *PostgresSettingsStore) GetInt(ctx context.Context, key string, fallback int) int {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.FromContext(ctx).Warn("unparsable integer setting",
			"key", key, "value", raw)
		return fallback
	}
	return n
}

// GetFloat returns the value parsed as a float, or fallback.
func (s *PostgresSettingsStore) GetFloat(ctx context.Context, key string, fallback float64) float64 {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		logger.FromContext(ctx).Warn("unparsable float setting",
			"key", key, "value", raw)
		return fallback
	}
	return f
}

// GetString returns the value for a key, or fallback when absent.
func (s *PostgresSettingsStore) GetString(ctx context.Context, key string, fallback string) string {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	return strings.TrimSpace(raw)
}

// GetStrings returns a comma-separated value split into trimmed fields.
func (s *PostgresSettingsStore) GetStrings(ctx context.Context, key string, fallback []string) []string {
	raw, err := s.Get(ctx, key)
	if err != nil || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}

// Set stores a value for a key, creating or replacing it.
func (s *PostgresSettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return MapError(err)
	}
	return nil
}

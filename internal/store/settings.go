package store

import (
	"context"
)

// SettingsStore is a read-through key/value store for run-level tunables
// (delay windows, thresholds, retention days, keywords). Values are re-read
// at the start of every collection run, never cached for the process
// lifetime, so operators can adjust them between runs.
type SettingsStore interface {
	// Get returns the raw string value for a key.
	// Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// GetInt returns the value for a key parsed as an integer, or fallback
	// when the key is absent or unparsable.
	GetInt(ctx context.Context, key string, fallback int) int

	// GetFloat returns the value for a key parsed as a float, or fallback
	// when the key is absent or unparsable.
	GetFloat(ctx context.Context, key string, fallback float64) float64

	// GetString returns the value for a key, or fallback when absent.
	GetString(ctx context.Context, key string, fallback string) string

	// GetStrings returns a comma-separated value split into fields, or
	// fallback when the key is absent or empty.
	GetStrings(ctx context.Context, key string, fallback []string) []string

	// Set stores a value for a key, creating or replacing it.
	Set(ctx context.Context, key, value string) error
}

// Setting keys used by the collector. Kept here so the collector and the
// admin surface agree on spelling.
const (
	SettingRankingPages         = "ranking_pages"
	SettingBatchSize            = "batch_size"
	SettingMaxRetries           = "max_retries"
	SettingMaxOffset            = "max_offset"
	SettingDelayMinSeconds      = "delay_min_seconds"
	SettingDelayMaxSeconds      = "delay_max_seconds"
	SettingBacktrackYears       = "new_user_backtrack_years"
	SettingLogRetentionDays     = "log_retention_days"
	SettingUpdateIntervalDays   = "update_interval_days"
	SettingUpdateMaxPerRun      = "update_max_per_run"
	SettingInvalidArtworkAction = "invalid_artwork_action"
	SettingCustomRankKeywords   = "custom_rank_keywords"
	SettingScoreMinBookmarks    = "score_min_bookmarks"
)

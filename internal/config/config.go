package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
//
// Static process settings live here and are loaded once at startup.
// Run-level collection tunables (delay windows, score thresholds, retention
// days) live in the system_settings table and are re-read per collection run
// through store.SettingsStore, so they can change without a restart.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"  validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
	Collector CollectorConfig `mapstructure:"collector"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile, when non-empty, mirrors JSON logs to a size-rotated file
	// in addition to stdout.
	LogFile string `mapstructure:"log_file"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// UpstreamConfig contains settings for the artwork platform API client.
type UpstreamConfig struct {
	BaseURL      string `mapstructure:"base_url"      validate:"required,url"`
	AuthURL      string `mapstructure:"auth_url"      validate:"required,url"`
	ClientID     string `mapstructure:"client_id"     validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	RefreshToken string `mapstructure:"refresh_token" validate:"required"`

	// RequestTimeoutSeconds bounds a single upstream HTTP call.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"gte=1"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount          int `mapstructure:"worker_count"           validate:"required,gte=1"`
	QueueSize            int `mapstructure:"queue_size"             validate:"required,gte=1"`
	ResultRetentionHours int `mapstructure:"result_retention_hours" validate:"required,gte=1"`
}

// CollectorConfig contains static collector settings. These are fallbacks:
// a value present in the system_settings table always wins for a given run.
type CollectorConfig struct {
	RankingPages   int `mapstructure:"ranking_pages"   validate:"gte=1"`
	MaxRetries     int `mapstructure:"max_retries"     validate:"gte=1"`
	BatchSize      int `mapstructure:"batch_size"      validate:"gte=1"`
	MaxOffset      int `mapstructure:"max_offset"      validate:"gte=1"`
	BacktrackYears int `mapstructure:"backtrack_years" validate:"gte=1"`
}

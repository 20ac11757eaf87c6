package collector

import (
	"context"
	"time"

	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/store"
	"github.com/yuzukisa/pixhive/internal/throttle"
)

// Keyword walk bounds. Fixed, not operator-tunable: they encode the freshness
// contract of the custom ranking rather than a pacing knob.
const (
	keywordMaxAge      = 72 * time.Hour
	keywordAcceptLimit = 50
)

// invalid_artwork_action values for metadata refresh runs.
const (
	InvalidActionMark   = "mark"
	InvalidActionDelete = "delete"
	InvalidActionKeep   = "keep"
)

// runSettings is the snapshot of tunables one collection run operates under.
// It is assembled fresh at the start of every run from the system_settings
// table, falling back to static config, so operator changes apply to the next
// run without a restart.
type runSettings struct {
	rankingPages       int
	maxRetries         int
	maxOffset          int
	backtrackYears     int
	logRetentionDays   int
	updateIntervalDays int
	updateMaxPerRun    int
	invalidAction      string
	keywords           []string

	pacing throttle.Config
	score  ScoreConfig
}

// loadSettings builds the per-run snapshot. Absent or malformed settings fall
// back to the static collector config, then to package defaults.
func loadSettings(ctx context.Context, settings store.SettingsStore, cfg config.CollectorConfig) runSettings {
	pacing := throttle.DefaultConfig()
	pacing.Delay.Min = time.Duration(settings.GetInt(ctx, store.SettingDelayMinSeconds, int(pacing.Delay.Min/time.Second))) * time.Second
	pacing.Delay.Max = time.Duration(settings.GetInt(ctx, store.SettingDelayMaxSeconds, int(pacing.Delay.Max/time.Second))) * time.Second
	pacing.BatchSize = settings.GetInt(ctx, store.SettingBatchSize, cfg.BatchSize)

	score := DefaultScoreConfig()
	score.MinBookmarks = settings.GetInt(ctx, store.SettingScoreMinBookmarks, score.MinBookmarks)

	return runSettings{
		rankingPages:       settings.GetInt(ctx, store.SettingRankingPages, cfg.RankingPages),
		maxRetries:         settings.GetInt(ctx, store.SettingMaxRetries, cfg.MaxRetries),
		maxOffset:          settings.GetInt(ctx, store.SettingMaxOffset, cfg.MaxOffset),
		backtrackYears:     settings.GetInt(ctx, store.SettingBacktrackYears, cfg.BacktrackYears),
		logRetentionDays:   settings.GetInt(ctx, store.SettingLogRetentionDays, 30),
		updateIntervalDays: settings.GetInt(ctx, store.SettingUpdateIntervalDays, 7),
		updateMaxPerRun:    settings.GetInt(ctx, store.SettingUpdateMaxPerRun, 200),
		invalidAction:      settings.GetString(ctx, store.SettingInvalidArtworkAction, InvalidActionMark),
		keywords:           settings.GetStrings(ctx, store.SettingCustomRankKeywords, nil),
		pacing:             pacing,
		score:              score,
	}
}

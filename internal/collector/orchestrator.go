package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/store"
	"github.com/yuzukisa/pixhive/internal/throttle"
)

// Params carries the mode-specific inputs of one collection run.
type Params struct {
	// Period selects the ranking listing for ranking_works runs.
	Period string

	// Keywords overrides the configured keyword list for custom_ranking
	// runs. Empty means "use the stored setting".
	Keywords []string

	// OnLogCreated, when set, is invoked with the CollectionLog ID as soon
	// as the log row exists, before any upstream call. The task layer uses
	// it to join the log to the polled task record.
	OnLogCreated func(logID uuid.UUID)
}

// Outcome is the terminal result of one collection run.
type Outcome struct {
	LogID         uuid.UUID
	Status        domain.LogStatus
	Message       string
	ArtworksCount int
}

// Orchestrator executes collection runs. Each run creates a CollectionLog,
// loads a fresh settings snapshot, drives the mode's page walks under the
// pacing limiter, and closes the log with one of the terminal states.
// A fetch-exhausted or cancelled walk downgrades the run to PARTIAL so
// already-persisted items stand; anything else escaping a mode fails the run.
type Orchestrator struct {
	upstream Upstream
	artworks store.ArtworkStore
	follows  store.FollowStore
	logs     store.CollectionLogStore
	settings store.SettingsStore
	cfg      config.CollectorConfig
	logger   *slog.Logger

	now          func() time.Time
	throttleOpts []throttle.Option
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock injects the time source. Used by tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithThrottleOptions forwards options to the per-run limiter and retry
// policy. Tests use it to replace sleeping with recording.
func WithThrottleOptions(opts ...throttle.Option) OrchestratorOption {
	return func(o *Orchestrator) { o.throttleOpts = opts }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	upstream Upstream,
	artworks store.ArtworkStore,
	follows store.FollowStore,
	logs store.CollectionLogStore,
	settings store.SettingsStore,
	cfg config.CollectorConfig,
	logger *slog.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		upstream: upstream,
		artworks: artworks,
		follows:  follows,
		logs:     logs,
		settings: settings,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one collection run for the given mode. It never panics out;
// every path ends in a terminal CollectionLog status with a summary message.
func (o *Orchestrator) Run(ctx context.Context, mode domain.LogType, params Params) Outcome {
	log, err := domain.NewCollectionLog(mode, "queued")
	if err != nil {
		return Outcome{Status: domain.LogStatusFailed, Message: err.Error()}
	}
	if err := o.logs.Create(ctx, log); err != nil {
		o.logger.Error("failed to create collection log", "log_type", mode, "error", err)
		return Outcome{Status: domain.LogStatusFailed, Message: "could not record collection run: " + err.Error()}
	}
	if params.OnLogCreated != nil {
		params.OnLogCreated(log.ID)
	}

	_ = log.UpdateStatus(domain.LogStatusRunning, "collection started")
	if err := o.logs.Update(ctx, log); err != nil {
		o.logger.Warn("failed to mark collection log running", "log_id", log.ID, "error", err)
	}

	set := loadSettings(ctx, o.settings, o.cfg)
	r := o.newRun(log, set)

	runLogger := o.logger.With("log_id", log.ID, "log_type", mode)
	runLogger.Info("collection run started")

	message, runErr := o.dispatch(ctx, r, mode, params)
	status := o.terminalStatus(r, runErr)
	if message == "" {
		message = defaultMessage(status, runErr)
	}

	if err := log.UpdateStatus(status, message); err != nil {
		runLogger.Error("failed to close collection log", "error", err)
	}
	if err := o.logs.Update(ctx, log); err != nil {
		runLogger.Error("failed to persist terminal collection log", "error", err)
	}

	runLogger.Info("collection run finished",
		"status", log.Status,
		"artworks_count", log.ArtworksCount,
		"message", log.Message)

	return Outcome{
		LogID:         log.ID,
		Status:        log.Status,
		Message:       log.Message,
		ArtworksCount: log.ArtworksCount,
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, r *run, mode domain.LogType, params Params) (string, error) {
	switch mode {
	case domain.LogTypeRankingWorks:
		return o.runRanking(ctx, r, params.Period)
	case domain.LogTypeFollowSync:
		return o.runFollowSync(ctx, r)
	case domain.LogTypeFollowNewWorks:
		return o.runFollowNewWorks(ctx, r)
	case domain.LogTypeInitialBackfill:
		return o.runBackfill(ctx, r)
	case domain.LogTypeCustomRanking:
		return o.runCustomRanking(ctx, r, params.Keywords)
	case domain.LogTypeMetadataUpdate:
		return o.runMetadataUpdate(ctx, r)
	case domain.LogTypeLogCleanup:
		return o.runLogCleanup(ctx, r)
	default:
		return "", fmt.Errorf("unknown collection mode %q", mode)
	}
}

// terminalStatus maps the dispatch result onto the log state machine.
func (o *Orchestrator) terminalStatus(r *run, err error) domain.LogStatus {
	switch {
	case err == nil && !r.partial:
		return domain.LogStatusSucceeded
	case err == nil,
		errors.Is(err, ErrFetchExhausted),
		errors.Is(err, ErrCancelled):
		return domain.LogStatusPartial
	default:
		return domain.LogStatusFailed
	}
}

func defaultMessage(status domain.LogStatus, err error) string {
	switch status {
	case domain.LogStatusSucceeded:
		return "collection completed"
	case domain.LogStatusPartial:
		if err != nil {
			return "collection stopped early: " + err.Error()
		}
		return "collection completed with some pages skipped"
	default:
		if err != nil {
			return "collection failed: " + err.Error()
		}
		return "collection failed"
	}
}

// run is the mutable state of one collection run. The orchestrator invocation
// that created it is its sole writer.
type run struct {
	o      *Orchestrator
	log    *domain.CollectionLog
	set    runSettings
	walker *PageWalker

	// partial records a recovered mid-run degradation (one user's walk
	// exhausted, one item skipped on refresh) that should downgrade an
	// otherwise clean run to PARTIAL.
	partial bool
}

func (o *Orchestrator) newRun(log *domain.CollectionLog, set runSettings) *run {
	limiter := throttle.NewLimiter(set.pacing, o.throttleOpts...)
	policy := throttle.NewPolicy(throttle.DefaultPolicyConfig(), o.throttleOpts...)
	sleep := throttle.SleepOf(o.throttleOpts...)

	return &run{
		o:   o,
		log: log,
		set: set,
		walker: NewPageWalker(limiter, policy, sleep, set.maxRetries, set.maxOffset,
			o.logger.With("log_id", log.ID)),
	}
}

// addProgress bumps the run's artwork count and persists it so a concurrent
// status poll observes live progress. Persistence here is best effort; the
// terminal update carries the authoritative count.
func (r *run) addProgress(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	r.log.ArtworksCount += n
	if err := r.o.logs.Update(ctx, r.log); err != nil {
		r.o.logger.Warn("failed to persist run progress", "log_id", r.log.ID, "error", err)
	}
}

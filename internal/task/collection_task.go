package task

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/domain"
)

// CollectionRunner executes one collection run end to end. Satisfied by
// *collector.Orchestrator.
type CollectionRunner interface {
	Run(ctx context.Context, mode domain.LogType, params collector.Params) collector.Outcome
}

// collectionPayload is the serialized task payload, kept for log inspection.
type collectionPayload struct {
	Period   string   `json:"period,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// CollectionTask wraps one collection run as a queueable unit of work.
type CollectionTask struct {
	id       uuid.UUID
	mode     domain.LogType
	params   collector.Params
	runner   CollectionRunner
	registry *Registry
}

// NewCollectionTask creates a CollectionTask with a fresh task ID.
func NewCollectionTask(runner CollectionRunner, registry *Registry, mode domain.LogType, params collector.Params) *CollectionTask {
	return &CollectionTask{
		id:       uuid.New(),
		mode:     mode,
		params:   params,
		runner:   runner,
		registry: registry,
	}
}

// ID returns the task's unique identifier
func (t *CollectionTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *CollectionTask) Type() string { return string(t.mode) }

// Payload returns the task data as a byte slice
func (t *CollectionTask) Payload() []byte {
	data, err := json.Marshal(collectionPayload{
		Period:   t.params.Period,
		Keywords: t.params.Keywords,
	})
	if err != nil {
		return nil
	}
	return data
}

// Execute runs the collection and records its outcome on the registry.
// A PARTIAL run counts as a completed task; only FAILED runs surface an
// error to the runner.
func (t *CollectionTask) Execute(ctx context.Context) error {
	params := t.params
	params.OnLogCreated = func(logID uuid.UUID) { t.registry.SetLogID(t.id, logID) }

	outcome := t.runner.Run(ctx, t.mode, params)

	if outcome.Status == domain.LogStatusFailed {
		t.registry.Finish(t.id, TaskStatusFailed, outcome.Message, outcome.ArtworksCount)
		return errors.New(outcome.Message)
	}
	t.registry.Finish(t.id, TaskStatusCompleted, outcome.Message, outcome.ArtworksCount)
	return nil
}

// TargetKey derives the single-flight key for a submission. Ranking runs are
// keyed per period and custom-ranking runs per sorted keyword set; every
// other mode shares one key per mode, which deliberately serializes
// concurrent metadata-update submissions.
func TargetKey(mode domain.LogType, params collector.Params) string {
	switch mode {
	case domain.LogTypeRankingWorks:
		period := params.Period
		if period == "" {
			period = "daily"
		}
		return string(mode) + ":" + period
	case domain.LogTypeCustomRanking:
		if len(params.Keywords) == 0 {
			return string(mode)
		}
		keywords := append([]string(nil), params.Keywords...)
		sort.Strings(keywords)
		return string(mode) + ":" + strings.Join(keywords, ",")
	default:
		return string(mode)
	}
}

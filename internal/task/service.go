package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/store"
)

// Service is the submission and polling surface the HTTP layer talks to.
// It ties the single-flight registry, the worker pool, and the collection
// orchestrator together.
type Service struct {
	runner    *TaskRunner
	registry  *Registry
	collector CollectionRunner
	logs      store.CollectionLogStore
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(
	runner *TaskRunner,
	registry *Registry,
	collectionRunner CollectionRunner,
	logs store.CollectionLogStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		runner:    runner,
		registry:  registry,
		collector: collectionRunner,
		logs:      logs,
		logger:    logger,
	}
}

// Submit queues a collection run and returns its task ID immediately.
// Returns ErrAlreadyRunning while an equivalent run is still in flight.
func (s *Service) Submit(ctx context.Context, mode domain.LogType, params collector.Params) (uuid.UUID, error) {
	t := NewCollectionTask(s.collector, s.registry, mode, params)
	key := TargetKey(mode, params)

	if err := s.registry.Begin(t.ID(), mode, key); err != nil {
		return uuid.Nil, err
	}
	if err := s.runner.Submit(ctx, t); err != nil {
		s.registry.Abort(t.ID())
		return uuid.Nil, fmt.Errorf("failed to queue task: %w", err)
	}

	s.logger.Info("task submitted",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"target_key", key)
	return t.ID(), nil
}

// StatusView is one poll's snapshot: the task record plus its collection log,
// when the run has created one.
type StatusView struct {
	Record Record
	Log    *domain.CollectionLog
}

// Status returns the pollable state of a task. It is idempotent and safe to
// call repeatedly; a running task's view reflects live log progress.
func (s *Service) Status(ctx context.Context, taskID uuid.UUID) (*StatusView, error) {
	rec, err := s.registry.Get(taskID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{Record: rec}
	if rec.LogID != uuid.Nil {
		log, err := s.logs.GetByID(ctx, rec.LogID)
		if err != nil {
			s.logger.Warn("failed to load collection log for task status",
				"task_id", taskID, "log_id", rec.LogID, "error", err)
		} else {
			view.Log = log
		}
	}
	return view, nil
}

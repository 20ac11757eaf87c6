package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/domain"
)

// Registry errors.
var (
	// ErrAlreadyRunning is returned when a submission targets a
	// (mode, target-key) pair that already has a task in flight. The caller
	// should surface it as a conflict, not queue a second run.
	ErrAlreadyRunning = errors.New("a task for this target is already running")

	// ErrTaskNotFound is returned when a polled task ID is unknown or its
	// record has expired past the retention window.
	ErrTaskNotFound = errors.New("task not found")
)

// Record is the pollable state of one submitted task. Fields are only ever
// appended to as the task advances; nothing resets a terminal record.
type Record struct {
	TaskID    uuid.UUID
	Mode      domain.LogType
	TargetKey string
	Status    TaskStatus

	// Result carries the run's terminal summary message.
	Result string

	// LogID joins the record to its CollectionLog once the run created one.
	LogID uuid.UUID

	ArtworksCount int
	SubmittedAt   time.Time
	FinishedAt    *time.Time
}

// Terminal reports whether the record reached a final status.
func (rec *Record) Terminal() bool {
	return rec.Status == TaskStatusCompleted || rec.Status == TaskStatusFailed
}

// Registry tracks submitted tasks for status polling and enforces the
// single-flight rule: at most one task in flight per (mode, target-key).
// Terminal records expire after the retention window; the collection log
// remains the durable history.
type Registry struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*Record
	inFlight  map[string]uuid.UUID
	retention time.Duration
	now       func() time.Time
}

// NewRegistry creates a Registry. A nil now func uses time.Now.
func NewRegistry(retention time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		records:   make(map[uuid.UUID]*Record),
		inFlight:  make(map[string]uuid.UUID),
		retention: retention,
		now:       now,
	}
}

// Begin registers a pending task for the given target. It fails fast with
// ErrAlreadyRunning while another task holds the same target key.
func (r *Registry) Begin(taskID uuid.UUID, mode domain.LogType, targetKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if _, running := r.inFlight[targetKey]; running {
		return ErrAlreadyRunning
	}

	r.inFlight[targetKey] = taskID
	r.records[taskID] = &Record{
		TaskID:      taskID,
		Mode:        mode,
		TargetKey:   targetKey,
		Status:      TaskStatusPending,
		SubmittedAt: r.now().UTC(),
	}
	return nil
}

// Abort removes a record that never made it onto the queue, releasing its
// target key.
func (r *Registry) Abort(taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[taskID]
	if !ok {
		return
	}
	delete(r.records, taskID)
	r.releaseLocked(rec)
}

// Get returns a copy of the task's record.
func (r *Registry) Get(taskID uuid.UUID) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	rec, ok := r.records[taskID]
	if !ok {
		return Record{}, ErrTaskNotFound
	}
	return *rec, nil
}

// SetLogID joins the record to its collection log as soon as the run created
// one, so polls can expose live progress before the task finishes.
func (r *Registry) SetLogID(taskID, logID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[taskID]; ok {
		rec.LogID = logID
	}
}

// Finish records the run's terminal outcome and releases the target key.
func (r *Registry) Finish(taskID uuid.UUID, status TaskStatus, result string, artworksCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[taskID]
	if !ok || rec.Terminal() {
		return
	}
	rec.Status = status
	rec.Result = result
	rec.ArtworksCount = artworksCount
	now := r.now().UTC()
	rec.FinishedAt = &now
	r.releaseLocked(rec)
}

// MarkProcessing implements Tracker.
func (r *Registry) MarkProcessing(taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[taskID]; ok && !rec.Terminal() {
		rec.Status = TaskStatusProcessing
	}
}

// MarkFailed implements Tracker. It is the fallback for tasks that errored
// without reporting an outcome; a record already finished stays as is.
func (r *Registry) MarkFailed(taskID uuid.UUID, message string) {
	r.Finish(taskID, TaskStatusFailed, message, 0)
}

// MarkCompleted implements Tracker. A record already finished through its
// outcome report stays as is.
func (r *Registry) MarkCompleted(taskID uuid.UUID) {
	r.Finish(taskID, TaskStatusCompleted, "", 0)
}

// releaseLocked frees the record's target key if it still holds it.
func (r *Registry) releaseLocked(rec *Record) {
	if holder, ok := r.inFlight[rec.TargetKey]; ok && holder == rec.TaskID {
		delete(r.inFlight, rec.TargetKey)
	}
}

// sweepLocked drops terminal records older than the retention window.
func (r *Registry) sweepLocked() {
	if r.retention <= 0 {
		return
	}
	cutoff := r.now().UTC().Add(-r.retention)
	for id, rec := range r.records {
		if rec.Terminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
			delete(r.records, id)
		}
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LogType identifies which collection mode produced a CollectionLog.
type LogType string

// Collection modes.
const (
	LogTypeRankingWorks    LogType = "ranking_works"
	LogTypeFollowSync      LogType = "follow_sync"
	LogTypeFollowNewWorks  LogType = "follow_new_works"
	LogTypeInitialBackfill LogType = "initial_backfill"
	LogTypeCustomRanking   LogType = "custom_ranking"
	LogTypeMetadataUpdate  LogType = "metadata_update"
	LogTypeLogCleanup      LogType = "log_cleanup"
)

// LogStatus represents the lifecycle state of a collection run.
type LogStatus string

// Possible log status values. Transitions only move forward:
// pending -> running -> one of the terminal states.
const (
	LogStatusPending   LogStatus = "pending"
	LogStatusRunning   LogStatus = "running"
	LogStatusSucceeded LogStatus = "succeeded"
	LogStatusPartial   LogStatus = "partial"
	LogStatusFailed    LogStatus = "failed"
)

// Common validation errors for CollectionLog.
var (
	ErrEmptyLogID           = errors.New("collection log ID cannot be empty")
	ErrInvalidLogType       = errors.New("invalid collection log type")
	ErrInvalidLogStatus     = errors.New("invalid collection log status")
	ErrLogStatusRegression  = errors.New("collection log status cannot move backward")
	ErrLogAlreadyTerminal   = errors.New("collection log is already in a terminal state")
	ErrNegativeArtworkCount = errors.New("artworks count cannot be negative")
)

// CollectionLog records the progress and outcome of one collection run.
// It is created when the run starts, mutated in place as progress advances,
// and immutable once a terminal status is reached. The orchestrator
// invocation that created it is its sole writer.
type CollectionLog struct {
	ID            uuid.UUID  `json:"id"`
	LogType       LogType    `json:"log_type"`
	Status        LogStatus  `json:"status"`
	Message       string     `json:"message"`
	ArtworksCount int        `json:"artworks_count"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// NewCollectionLog creates a pending CollectionLog for the given mode.
func NewCollectionLog(logType LogType, message string) (*CollectionLog, error) {
	log := &CollectionLog{
		ID:        uuid.New(),
		LogType:   logType,
		Status:    LogStatusPending,
		Message:   message,
		StartedAt: time.Now().UTC(),
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	return log, nil
}

// Validate checks if the CollectionLog has valid data.
func (l *CollectionLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLogID
	}
	if !isValidLogType(l.LogType) {
		return ErrInvalidLogType
	}
	if !isValidLogStatus(l.Status) {
		return ErrInvalidLogStatus
	}
	if l.ArtworksCount < 0 {
		return ErrNegativeArtworkCount
	}
	return nil
}

// Terminal reports whether the log has reached a final state.
func (l *CollectionLog) Terminal() bool {
	switch l.Status {
	case LogStatusSucceeded, LogStatusPartial, LogStatusFailed:
		return true
	default:
		return false
	}
}

// UpdateStatus advances the log's status. Transitions are forward-only:
// a terminal log rejects any further change, and RUNNING cannot go back to
// PENDING.
func (l *CollectionLog) UpdateStatus(status LogStatus, message string) error {
	if !isValidLogStatus(status) {
		return ErrInvalidLogStatus
	}
	if l.Terminal() {
		return ErrLogAlreadyTerminal
	}
	if l.Status == LogStatusRunning && status == LogStatusPending {
		return ErrLogStatusRegression
	}

	l.Status = status
	if message != "" {
		l.Message = message
	}
	if l.Terminal() {
		now := time.Now().UTC()
		l.FinishedAt = &now
	}
	return nil
}

func isValidLogType(t LogType) bool {
	switch t {
	case LogTypeRankingWorks, LogTypeFollowSync, LogTypeFollowNewWorks,
		LogTypeInitialBackfill, LogTypeCustomRanking, LogTypeMetadataUpdate,
		LogTypeLogCleanup:
		return true
	default:
		return false
	}
}

func isValidLogStatus(s LogStatus) bool {
	switch s {
	case LogStatusPending, LogStatusRunning, LogStatusSucceeded,
		LogStatusPartial, LogStatusFailed:
		return true
	default:
		return false
	}
}

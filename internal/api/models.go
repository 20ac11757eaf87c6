package api

import (
	"time"

	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/task"
)

// TaskSubmittedResponse acknowledges an accepted collection submission.
type TaskSubmittedResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

// TaskMetadata describes a submitted task independent of its run outcome.
type TaskMetadata struct {
	Mode        string     `json:"mode"`
	TargetKey   string     `json:"target_key"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// LogSummary is the API shape of one collection log.
type LogSummary struct {
	ID            string     `json:"id"`
	LogType       string     `json:"log_type"`
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	ArtworksCount int        `json:"artworks_count"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// TaskStatusResponse is one status poll's answer.
type TaskStatusResponse struct {
	Success  bool         `json:"success"`
	TaskID   string       `json:"task_id"`
	Status   string       `json:"status"`
	Result   string       `json:"result,omitempty"`
	Metadata TaskMetadata `json:"metadata"`
	Log      *LogSummary  `json:"log,omitempty"`
}

// LogListResponse is a paginated collection log listing.
type LogListResponse struct {
	Success bool         `json:"success"`
	Total   int          `json:"total"`
	Logs    []LogSummary `json:"logs"`
}

// CustomRankingRequest optionally overrides the configured keyword list.
type CustomRankingRequest struct {
	Keywords []string `json:"keywords"`
}

func logSummary(log *domain.CollectionLog) *LogSummary {
	if log == nil {
		return nil
	}
	return &LogSummary{
		ID:            log.ID.String(),
		LogType:       string(log.LogType),
		Status:        string(log.Status),
		Message:       log.Message,
		ArtworksCount: log.ArtworksCount,
		StartedAt:     log.StartedAt,
		FinishedAt:    log.FinishedAt,
	}
}

func taskStatusResponse(view *task.StatusView) TaskStatusResponse {
	rec := view.Record
	return TaskStatusResponse{
		Success: true,
		TaskID:  rec.TaskID.String(),
		Status:  string(rec.Status),
		Result:  rec.Result,
		Metadata: TaskMetadata{
			Mode:        string(rec.Mode),
			TargetKey:   rec.TargetKey,
			SubmittedAt: rec.SubmittedAt,
			FinishedAt:  rec.FinishedAt,
		},
		Log: logSummary(view.Log),
	}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yuzukisa/pixhive/internal/api/shared"
	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/store"
	"github.com/yuzukisa/pixhive/internal/task"
)

// CollectHandler exposes the collection surface: one submission endpoint per
// mode, the task status poll, and the collection log listing.
type CollectHandler struct {
	tasks  *task.Service
	logs   store.CollectionLogStore
	logger *slog.Logger
}

// NewCollectHandler creates a CollectHandler.
func NewCollectHandler(tasks *task.Service, logs store.CollectionLogStore, logger *slog.Logger) *CollectHandler {
	return &CollectHandler{tasks: tasks, logs: logs, logger: logger}
}

// RegisterRoutes mounts the collection endpoints on the router.
func (h *CollectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/collect", func(r chi.Router) {
		r.Post("/ranking/{period}", h.SubmitRanking)
		r.Post("/follows/sync", h.submitMode(domain.LogTypeFollowSync))
		r.Post("/follows/new-works", h.submitMode(domain.LogTypeFollowNewWorks))
		r.Post("/follows/backfill", h.submitMode(domain.LogTypeInitialBackfill))
		r.Post("/custom-ranking", h.SubmitCustomRanking)
		r.Post("/metadata", h.submitMode(domain.LogTypeMetadataUpdate))
		r.Post("/logs/cleanup", h.submitMode(domain.LogTypeLogCleanup))

		r.Get("/task/{taskID}", h.TaskStatus)
		r.Get("/logs", h.ListLogs)
	})
}

// SubmitRanking queues a ranking collection for the period in the path.
func (h *CollectHandler) SubmitRanking(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	switch period {
	case "daily", "weekly", "monthly":
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"period must be one of daily, weekly, monthly")
		return
	}
	h.submit(w, r, domain.LogTypeRankingWorks, collector.Params{Period: period})
}

// SubmitCustomRanking queues a keyword scoring run. The optional body may
// override the configured keyword list.
func (h *CollectHandler) SubmitCustomRanking(w http.ResponseWriter, r *http.Request) {
	var req CustomRankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	h.submit(w, r, domain.LogTypeCustomRanking, collector.Params{Keywords: req.Keywords})
}

// submitMode returns a handler that queues a run of a fixed mode with no
// parameters.
func (h *CollectHandler) submitMode(mode domain.LogType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.submit(w, r, mode, collector.Params{})
	}
}

func (h *CollectHandler) submit(w http.ResponseWriter, r *http.Request, mode domain.LogType, params collector.Params) {
	taskID, err := h.tasks.Submit(r.Context(), mode, params)
	if err != nil {
		h.respondSubmitError(w, r, mode, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskSubmittedResponse{
		Success: true,
		TaskID:  taskID.String(),
	})
}

func (h *CollectHandler) respondSubmitError(w http.ResponseWriter, r *http.Request, mode domain.LogType, err error) {
	switch {
	case errors.Is(err, task.ErrAlreadyRunning):
		shared.RespondWithError(w, r, http.StatusConflict,
			"a "+string(mode)+" task for this target is already running")
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			"could not queue the task, try again later", err)
	}
}

// TaskStatus answers a poll for one submitted task.
func (h *CollectHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	view, err := h.tasks.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "task not found or expired")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"failed to load task status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskStatusResponse(view))
}

// ListLogs returns collection logs newest first, optionally filtered by type
// and status.
func (h *CollectHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	filter := store.LogFilter{
		LogType: domain.LogType(r.URL.Query().Get("type")),
		Status:  domain.LogStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "offset must not be negative")
			return
		}
		filter.Offset = offset
	}

	logs, total, err := h.logs.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"failed to list collection logs", err)
		return
	}

	response := LogListResponse{Success: true, Total: total, Logs: make([]LogSummary, 0, len(logs))}
	for _, log := range logs {
		response.Logs = append(response.Logs, *logSummary(log))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/domain"
	"github.com/yuzukisa/pixhive/internal/store"
	"github.com/yuzukisa/pixhive/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubLogStore is the in-memory CollectionLogStore behind the handler tests.
type stubLogStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.CollectionLog
}

func newStubLogStore() *stubLogStore {
	return &stubLogStore{rows: make(map[uuid.UUID]domain.CollectionLog)}
}

func (s *stubLogStore) Create(_ context.Context, log *domain.CollectionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[log.ID] = *log
	return nil
}

func (s *stubLogStore) GetByID(_ context.Context, id uuid.UUID) (*domain.CollectionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, store.ErrCollectionLogNotFound
	}
	return &row, nil
}

func (s *stubLogStore) Update(_ context.Context, log *domain.CollectionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[log.ID] = *log
	return nil
}

func (s *stubLogStore) List(_ context.Context, filter store.LogFilter) ([]*domain.CollectionLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.CollectionLog
	for _, row := range s.rows {
		if filter.LogType != "" && row.LogType != filter.LogType {
			continue
		}
		copied := row
		out = append(out, &copied)
	}
	total := len(out)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *stubLogStore) DeleteOlderThan(context.Context, time.Time) (int, error) { return 0, nil }

func (s *stubLogStore) WithTx(*sql.Tx) store.CollectionLogStore { return s }

// stubCollector fakes the orchestrator behind the task service.
type stubCollector struct {
	logs    *stubLogStore
	outcome collector.Outcome

	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}
}

func (s *stubCollector) Run(ctx context.Context, mode domain.LogType, params collector.Params) collector.Outcome {
	log, _ := domain.NewCollectionLog(mode, "queued")
	_ = s.logs.Create(ctx, log)
	if params.OnLogCreated != nil {
		params.OnLogCreated(log.ID)
	}

	if s.started != nil {
		s.startedOnce.Do(func() { close(s.started) })
	}
	if s.release != nil {
		<-s.release
	}

	_ = log.UpdateStatus(domain.LogStatusRunning, "")
	_ = log.UpdateStatus(s.outcome.Status, s.outcome.Message)
	log.ArtworksCount = s.outcome.ArtworksCount
	_ = s.logs.Update(ctx, log)

	outcome := s.outcome
	outcome.LogID = log.ID
	return outcome
}

func newTestRouter(t *testing.T, stub *stubCollector) chi.Router {
	t.Helper()

	registry := task.NewRegistry(time.Hour, nil)
	runner := task.NewTaskRunner(registry, task.TaskRunnerConfig{WorkerCount: 2, QueueSize: 10}, testLogger())
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)

	svc := task.NewService(runner, registry, stub, stub.logs, testLogger())
	handler := NewCollectHandler(svc, stub.logs, testLogger())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func successfulStub() *stubCollector {
	return &stubCollector{
		logs: newStubLogStore(),
		outcome: collector.Outcome{
			Status:        domain.LogStatusSucceeded,
			Message:       "collection completed",
			ArtworksCount: 5,
		},
	}
}

func TestSubmitRankingAccepted(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/ranking/daily", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TaskSubmittedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	_, err := uuid.Parse(resp.TaskID)
	assert.NoError(t, err)
}

func TestSubmitRankingRejectsUnknownPeriod(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/ranking/hourly", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDuplicateTargetConflicts(t *testing.T) {
	t.Parallel()

	stub := successfulStub()
	stub.started = make(chan struct{})
	stub.release = make(chan struct{})
	router := newTestRouter(t, stub)
	defer close(stub.release)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/metadata", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	<-stub.started

	dup := httptest.NewRecorder()
	router.ServeHTTP(dup, httptest.NewRequest(http.MethodPost, "/api/collect/metadata", nil))
	assert.Equal(t, http.StatusConflict, dup.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(dup.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "already running")
}

func TestSubmitCustomRankingWithBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	body := strings.NewReader(`{"keywords": ["landscape", "portrait"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/custom-ranking", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSubmitCustomRankingBadBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/custom-ranking",
		strings.NewReader(`{"keywords": 5}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskStatusLifecycle(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collect/follows/sync", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted TaskSubmittedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	var status TaskStatusResponse
	require.Eventually(t, func() bool {
		poll := httptest.NewRecorder()
		router.ServeHTTP(poll, httptest.NewRequest(http.MethodGet, "/api/collect/task/"+submitted.TaskID, nil))
		if poll.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(poll.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == string(task.TaskStatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, status.Success)
	assert.Equal(t, submitted.TaskID, status.TaskID)
	assert.Equal(t, "collection completed", status.Result)
	assert.Equal(t, "follow_sync", status.Metadata.Mode)

	require.NotNil(t, status.Log)
	assert.Equal(t, "follow_sync", status.Log.LogType)
	assert.Equal(t, "succeeded", status.Log.Status)
	assert.Equal(t, 5, status.Log.ArtworksCount)
}

func TestTaskStatusInvalidAndUnknownIDs(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, successfulStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collect/task/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collect/task/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLogs(t *testing.T) {
	t.Parallel()

	stub := successfulStub()
	router := newTestRouter(t, stub)

	for i := 0; i < 3; i++ {
		log, err := domain.NewCollectionLog(domain.LogTypeRankingWorks, "old run")
		require.NoError(t, err)
		require.NoError(t, stub.logs.Create(context.Background(), log))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collect/logs?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LogListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Logs, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collect/logs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	t.Parallel()

	handler := NewHealthHandler(nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

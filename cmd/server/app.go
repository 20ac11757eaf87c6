package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuzukisa/pixhive/internal/api"
	"github.com/yuzukisa/pixhive/internal/collector"
	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/platform/pixiv"
	"github.com/yuzukisa/pixhive/internal/platform/postgres"
	"github.com/yuzukisa/pixhive/internal/task"
)

// application holds the wired dependency graph of one server process.
type application struct {
	cfg        *config.Config
	logger     *slog.Logger
	server     *http.Server
	taskRunner *task.TaskRunner
}

// newApplication wires stores, the upstream client, the orchestrator, and
// the task layer into a runnable server.
func newApplication(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*application, error) {
	artworkStore := postgres.NewPostgresArtworkStore(db)
	followStore := postgres.NewPostgresFollowStore(db)
	logStore := postgres.NewPostgresCollectionLogStore(db)
	settingsStore := postgres.NewPostgresSettingsStore(db)

	timeout := time.Duration(cfg.Upstream.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	credentials := pixiv.NewCredentialManager(cfg.Upstream, httpClient)
	upstream := pixiv.NewClient(cfg.Upstream, credentials)

	orchestrator := collector.NewOrchestrator(
		upstream, artworkStore, followStore, logStore, settingsStore,
		cfg.Collector, logger)

	retention := time.Duration(cfg.Task.ResultRetentionHours) * time.Hour
	registry := task.NewRegistry(retention, nil)
	taskRunner := task.NewTaskRunner(registry, task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, logger)
	taskService := task.NewService(taskRunner, registry, orchestrator, logStore, logger)

	collectHandler := api.NewCollectHandler(taskService, logStore, logger)
	healthHandler := api.NewHealthHandler(db)
	router := newRouter(collectHandler, healthHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &application{
		cfg:        cfg,
		logger:     logger,
		server:     server,
		taskRunner: taskRunner,
	}, nil
}

// shutdown drains the HTTP server, then stops the workers. In-flight runs
// observe the cancellation at their next page boundary.
func (a *application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", "error", err)
	}

	a.taskRunner.Stop()
	a.logger.Info("server stopped")
	return nil
}

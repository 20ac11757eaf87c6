// Package main implements the entry point for the pixhive server, which
// collects and scores artwork metadata from the upstream platform API and
// exposes the collection modes over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuzukisa/pixhive/internal/config"
	"github.com/yuzukisa/pixhive/internal/platform/logger"
)

func main() {
	migrate := flag.String("migrate", "", "run database migrations (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Task.WorkerCount)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if *migrate != "" {
		if err := runMigrations(db, *migrate, appLogger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		return
	}

	app, err := newApplication(cfg, db, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := run(app, appLogger); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// run starts the task workers and the HTTP server, then blocks until a
// shutdown signal arrives.
func run(app *application, appLogger *slog.Logger) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()
	appLogger.Info("server started", "addr", app.server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		appLogger.Info("shutdown signal received", "signal", sig.String())
		return app.shutdown()
	case err := <-errCh:
		return err
	}
}

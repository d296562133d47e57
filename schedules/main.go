package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loomworks/loom-go/internal/platform/env"
	"github.com/loomworks/loom-go/internal/platform/httpserver"
	"github.com/loomworks/loom-go/internal/platform/manifest"
	"github.com/loomworks/loom-go/internal/platform/postgres"
	"github.com/loomworks/loom-go/internal/repo"
	repopg "github.com/loomworks/loom-go/internal/repo/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("LOOM_SCHEDULES_HTTP_ADDR", ":8084")
	shutdownTimeout, err := env.Duration("LOOM_SCHEDULES_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := repopg.EnsureSchema(startupCtx, db); err != nil {
		cancel()
		logger.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	cancel()

	store := repopg.NewScheduleStore(db)

	if manifestPath := env.String("LOOM_REPOSITORY_MANIFEST", ""); manifestPath != "" {
		if err := seedFromManifest(ctx, logger, store, manifestPath); err != nil {
			logger.Error("manifest seeding failed", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("schedules"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"schedules",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
		),
	)

	api := newSchedulesAPI(logger, store)
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "schedules",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "schedules", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// seedFromManifest registers the manifest's schedules, leaving records that
// already exist untouched.
func seedFromManifest(ctx context.Context, logger *slog.Logger, store repo.ScheduleStorage, path string) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	for _, record := range m.Records() {
		err := store.AddSchedule(ctx, record.RepositoryName, record)
		if errors.Is(err, repo.ErrAlreadyExists) {
			logger.Info("schedule already registered",
				"repository", record.RepositoryName, "schedule", record.Name)
			continue
		}
		if err != nil {
			return err
		}
		logger.Info("schedule registered",
			"repository", record.RepositoryName, "schedule", record.Name)
	}
	return nil
}

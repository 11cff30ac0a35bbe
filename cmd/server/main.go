// Package main is the entrypoint for the qruntime API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/qruntime/internal/api"
	"github.com/kiranshivaraju/qruntime/internal/api/handler"
	mw "github.com/kiranshivaraju/qruntime/internal/api/middleware"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
	"github.com/kiranshivaraju/qruntime/internal/backend"
	"github.com/kiranshivaraju/qruntime/internal/cache"
	"github.com/kiranshivaraju/qruntime/internal/config"
	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/internal/gateway"
	"github.com/kiranshivaraju/qruntime/internal/observability"
	"github.com/kiranshivaraju/qruntime/internal/store"
)

const (
	shutdownTimeout        = 30 * time.Second
	journalCleanupInterval = time.Hour
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "executor", cfg.Executor.Kind, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracing, err := observability.InitTracing("qruntime", cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// 3. Backend catalog
	catalog, err := loadCatalog(cfg.Engine.BackendsFile)
	if err != nil {
		return fmt.Errorf("load backends: %w", err)
	}
	slog.Info("backend catalog loaded", "backends", len(catalog.List()))

	// 4. Executor
	executor, err := gateway.NewExecutor(cfg.Executor)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	slog.Info("executor initialized", "executor", executor.Name())

	// 5. Event journal
	journal, closeJournal, err := openJournal(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeJournal()

	// 6. Optional Redis: status mirror and rate limiting
	var (
		redisCache cache.Cache
		mirror     engine.StatusMirror
		rateLimit  *mw.RateLimit
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		redisCache, mirror = rc, rc
		rateLimit = mw.NewRateLimit(rc, cfg.RateLimit.PerMinute)
	}

	// 7. Engine
	eng := engine.New(engine.Options{
		Executor:      executor,
		Backends:      catalog,
		Programs:      cfg.Engine.Programs,
		SweepInterval: cfg.Engine.SweepInterval,
		Journal:       journal,
		StatusMirror:  mirror,
		StatusTTL:     cfg.Engine.StatusTTL,
	})
	eng.Start()
	slog.Info("engine started", "sweep_interval", cfg.Engine.SweepInterval.String())

	// 8. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		RateLimit:     rateLimit,
		HealthHandler: healthHandler(journal, redisCache),

		CreateSession: handler.NewCreateSessionHandler(eng.Sessions),
		ListSessions:  handler.NewListSessionsHandler(eng.Sessions),
		GetSession:    handler.NewGetSessionHandler(eng.Sessions),
		UpdateSession: handler.NewUpdateSessionHandler(eng.Sessions),
		CancelSession: handler.NewCancelSessionHandler(eng.Sessions),
		SessionJobs:   handler.NewSessionJobsHandler(eng.Sessions, eng.Jobs),
		SessionEvents: handler.NewSessionEventsHandler(eng.Sessions, journal),

		CreateJob:  handler.NewCreateJobHandler(eng.Jobs),
		ListJobs:   handler.NewListJobsHandler(eng.Jobs),
		GetJob:     handler.NewGetJobHandler(eng.Jobs),
		CancelJob:  handler.NewCancelJobHandler(eng.Jobs),
		JobResults: handler.NewJobResultsHandler(eng.Jobs),
		JobEvents:  handler.NewJobEventsHandler(eng.Jobs, journal),

		ListBackends: handler.NewListBackendsHandler(catalog),
		GetBackend:   handler.NewGetBackendHandler(catalog),
	})

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func loadCatalog(path string) (*backend.Catalog, error) {
	if path == "" {
		return backend.Builtin(), nil
	}
	return backend.LoadFile(path)
}

// openJournal connects to PostgreSQL and applies migrations when a database
// URL is configured, and falls back to the in-memory journal otherwise.
func openJournal(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	if cfg.URL == "" {
		slog.Info("no database configured, using in-memory journal")
		s := store.NewMemoryStore()
		return s, func() { s.Close() }, nil
	}

	db, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	if err := store.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	pg := store.NewPostgresStore(db, cfg.RetentionDays)
	pg.StartCleanupRoutine(journalCleanupInterval)
	return pg, closeAll(pg, db), nil
}

func closeAll(pg *store.PostgresStore, db *sql.DB) func() {
	return func() {
		pg.Close()
		db.Close()
	}
}

// healthHandler checks journal and cache connectivity. c is nil when Redis
// is not configured.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"journal": "ok"}
		if err := s.Ping(r.Context()); err != nil {
			checks["journal"] = "degraded"
		}
		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
			}
		}

		for _, status := range checks {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded,
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

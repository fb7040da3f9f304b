package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskindex/deskindex/internal/api"
	"github.com/deskindex/deskindex/internal/audit"
	"github.com/deskindex/deskindex/internal/auth"
	"github.com/deskindex/deskindex/internal/backend"
	"github.com/deskindex/deskindex/internal/cloudsql"
	"github.com/deskindex/deskindex/internal/config"
	"github.com/deskindex/deskindex/internal/database"
	"github.com/deskindex/deskindex/internal/logging"
	"github.com/deskindex/deskindex/internal/metrics"
	"github.com/deskindex/deskindex/internal/page"
	"github.com/deskindex/deskindex/internal/scheduler"
	"github.com/deskindex/deskindex/internal/server"
	"github.com/deskindex/deskindex/internal/ui"
	"github.com/deskindex/deskindex/internal/zendesk"
	"log/slog"
)

const version = "0.1.0"

// activityStore is what the console needs from its audit backend.
type activityStore interface {
	audit.Store
	scheduler.Pruner
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting deskindex console", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, activity := openActivityStore(ctx, logger)
	if db != nil {
		defer db.Close()
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	backendClient := backend.NewClient(cfg.Backend, logger, collector)
	logger.Info("backend configured", "url", cfg.Backend.URL, "service_token", cfg.Backend.APIToken != "" || cfg.Backend.JWTSecret != "")

	opts := page.Options{
		Activity:      activity,
		Metrics:       collector,
		Logger:        logger,
		BaseDomain:    cfg.Zendesk.BaseDomain,
		FetchTimeout:  cfg.Backend.Timeout,
		RenderTimeout: cfg.Page.RenderTimeout,
	}
	if cfg.Zendesk.VerifyCredentials {
		opts.Verifier = zendesk.NewClient(cfg.Zendesk, logger)
	} else {
		logger.Warn("zendesk credential verification disabled")
	}
	service := page.NewService(backendClient, opts)

	renderer, err := ui.NewRenderer()
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{"backend": "ok"}
		if err := backendClient.Health(checkCtx); err != nil {
			status = http.StatusServiceUnavailable
			checks["backend"] = err.Error()
		}
		if db != nil {
			checks["database"] = "ok"
			if err := database.HealthCheck(checkCtx, db); err != nil {
				status = http.StatusServiceUnavailable
				checks["database"] = err.Error()
			}
		}
		api.WriteJSON(w, status, checks, logger)
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]any{
			"service":  "deskindex",
			"status":   "ready",
			"version":  version,
			"database": cloudsql.ConnectionInfo()["connection_type"],
		}
		if db != nil {
			info["pool"] = database.Stats(db)
		}
		api.WriteJSON(w, http.StatusOK, info, logger)
	})

	mux.Handle("/metrics", collector.Handler())

	logger.Info("setting up routes")
	api.SetupRoutes(mux, api.Dependencies{
		Service:  service,
		Popups:   page.NewPopupStore(page.PopupTTL),
		Renderer: renderer,
		Health:   backendClient,
		Activity: activity,
		Auth:     authConfig,
		Logger:   logger,
	})

	retention := scheduler.NewRetentionScheduler(activity, cfg.Audit.Retention, logger)
	go retention.Start(ctx)

	handler := server.RequestLogger(
		server.RootRedirect(collector.InstrumentHandler(mux, api.MetricsPath), api.PagePath),
		logger,
	)
	srv := server.New(cfg.Server, logger, handler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("console available", "addr", srv.Addr(), "page", api.PagePath)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// openActivityStore connects to Postgres when configured and falls back to an
// in-memory log otherwise. A configured but unreachable database is fatal.
func openActivityStore(ctx context.Context, logger *slog.Logger) (*sql.DB, activityStore) {
	dbURL, err := cloudsql.BuildDatabaseURL()
	if errors.Is(err, cloudsql.ErrNotConfigured) {
		logger.Warn("no database configured, keeping activity log in memory")
		return nil, audit.NewMemoryStore(0)
	}
	if err != nil {
		logger.Error("failed to build database URL", "error", err)
		os.Exit(1)
	}

	logger.Info("database configuration", "config", cloudsql.ConnectionInfo())

	db, err := database.Open(ctx, dbURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	if err := database.RunMigrations(ctx, db, database.Migrations(), logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db, database.NewActivityLogRepository(db)
}

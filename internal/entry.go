// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/genresync/internal/api"
	"github.com/starford/genresync/internal/index"
	"github.com/starford/genresync/internal/mcpserver"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/reconcile"
	"github.com/starford/genresync/internal/settings"
	"github.com/starford/genresync/internal/sse"
	"github.com/starford/genresync/internal/storage"
	"github.com/starford/genresync/internal/syncservice"
	"github.com/starford/genresync/internal/watch"
)

// runtime holds the components shared by every entry point.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *syncservice.Service
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

// bootstrap builds the logger, storage, settings, index, engine and service.
// notifier may be nil.
func bootstrap(app *application, notifier reconcile.Notifier) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("workers", cfg.Sync.Workers),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	engineOpts := []reconcile.Option{
		reconcile.WithWorkers(cfg.Sync.Workers),
		reconcile.WithRecorder(db),
	}
	if notifier != nil {
		engineOpts = append(engineOpts, reconcile.WithNotifier(notifier))
	}
	engine := reconcile.New(store, logger, engineOpts...)

	svc := syncservice.NewService(settings.NewStore(cfg.Settings.Path), engine, db, logger)

	return &runtime{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

// Update runs "Update Genre Pages" once. Fields set in overrides replace the
// persisted settings for this run only.
func Update(ctx context.Context, overrides syncservice.SettingsPatch, opts ...Option) (*models.RunReport, error) {
	rt, err := bootstrap(newApplication(opts), nil)
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	return rt.svc.UpdateGenrePagesWith(ctx, overrides)
}

// ShowSettings returns the persisted folder settings.
func ShowSettings(ctx context.Context, opts ...Option) (models.Settings, error) {
	rt, err := bootstrap(newApplication(opts), nil)
	if err != nil {
		return models.Settings{}, err
	}
	defer rt.Close()
	return rt.svc.Settings(ctx)
}

// SetSettings persists the fields set in patch.
func SetSettings(ctx context.Context, patch syncservice.SettingsPatch, opts ...Option) (models.Settings, error) {
	rt, err := bootstrap(newApplication(opts), nil)
	if err != nil {
		return models.Settings{}, err
	}
	defer rt.Close()
	return rt.svc.UpdateSettings(ctx, patch)
}

// Watch reconciles whenever notes under the artist folder change, until ctx
// is cancelled or a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	rt, err := bootstrap(newApplication(opts), nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("Watching vault", slog.String("vault_path", rt.store.Root()))
	if err := watch.Watch(ctx, rt.store.Root(), rt.cfg.Sync.Debounce, rt.logger, rt.svc.NotesChanged); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	rt.logger.Info("Watcher stopped")
	return nil
}

// ServeMCP runs the MCP server over stdio.
func ServeMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(app, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Serve starts the HTTP server (REST + SSE) and, when enabled, the vault
// watcher.
func Serve(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)

	broker := sse.NewBroker()
	defer broker.Close()

	rt, err := bootstrap(app, broker)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := rt.svc.Settings(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"settings unavailable"}`))
			return
		}
		healthOK(w, req)
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Sync.Watch {
		g.Go(func() error {
			if err := watch.Watch(gCtx, rt.store.Root(), cfg.Sync.Debounce, logger, rt.svc.NotesChanged); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

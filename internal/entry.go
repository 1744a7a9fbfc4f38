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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/admission"
	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/manifest"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/publish"
	"github.com/starford/othala/internal/render"
	"github.com/starford/othala/internal/sessionstore"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("site_root", cfg.Site.Root),
		slog.String("sqlite_path", cfg.Sessions.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure site directory exists.
	if err := os.MkdirAll(cfg.Site.Root, 0o755); err != nil {
		return fmt.Errorf("create site dir: %w", err)
	}
	if dir := filepath.Dir(cfg.Sessions.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sessions dir: %w", err)
		}
	}

	// Initialize storage.
	content, err := storage.NewContentFS(cfg.Site.Root)
	if err != nil {
		return fmt.Errorf("init content storage: %w", err)
	}
	assets, err := storage.NewAssetFS(cfg.Site.Root)
	if err != nil {
		return fmt.Errorf("init asset storage: %w", err)
	}
	manifests, err := storage.NewManifestFS(cfg.Site.Root)
	if err != nil {
		return fmt.Errorf("init manifest storage: %w", err)
	}

	// Initialize session database.
	db, err := sessionstore.Open(cfg.Sessions.SQLitePath)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	defer db.Close()

	// Publishing service.
	renderer := app.renderer
	if renderer == nil {
		renderer = render.NewGoldmark()
	}
	svc := publish.NewService(db, manifests, content, assets,
		renderer, checksum.SHA256{}, cfg.Publish.Concurrency)

	// Admission controller.
	adm := admission.New(cfg.Admission.ControllerConfig())

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build API handler and router.
	h := api.NewHandler(svc, broker)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, adm, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics.
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Sample scheduler lag and heap usage for admission decisions.
	g.Go(func() error {
		adm.Sample(gCtx)
		return nil
	})

	// Watch the manifest file and rebuild the site index on external edits.
	g.Go(func() error {
		err := manifest.Watch(gCtx, manifests, manifests.Path(), logger, func(m *models.Manifest) {
			broker.Publish(sse.Event{
				Type: sse.EventManifestRebuilt,
				Data: map[string]any{"pages": len(m.Pages), "version": m.Version},
			})
		})
		if err != nil {
			logger.Warn("manifest watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/flexdir/internal/api"
	"github.com/starford/flexdir/internal/backend"
	"github.com/starford/flexdir/internal/changelog"
	"github.com/starford/flexdir/internal/directory"
	"github.com/starford/flexdir/internal/entryservice"
	"github.com/starford/flexdir/internal/locator"
	"github.com/starford/flexdir/internal/mcpserver"
	"github.com/starford/flexdir/internal/sse"
	"github.com/starford/flexdir/internal/storage"
	"github.com/starford/flexdir/internal/watch"
)

// Version is reported by the MCP server.
const Version = "0.1.0"

// core is the wiring shared by the HTTP and MCP hosts.
type core struct {
	store storage.Provider
	root  string // on-disk data root, empty for the memory driver
	cache *backend.Cache
	reg   *directory.Registry
	log   *changelog.DB
}

func (c *core) Close() error {
	return c.log.Close()
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// newCore opens storage, the change log and the directory registry.
func newCore(cfg *Config, logger *slog.Logger) (*core, error) {
	c := &core{cache: backend.NewCache()}

	switch cfg.Data.Driver {
	case DriverMemory:
		c.store = storage.NewMemory()
	default:
		// Ensure data directory exists.
		if err := os.MkdirAll(cfg.Data.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Data.Root)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.store = fs
		c.root = fs.Root()
	}

	blueprints, err := storage.NewFS(cfg.Directory.Blueprints)
	if err != nil {
		return nil, fmt.Errorf("init blueprints: %w", err)
	}

	env := &directory.Env{
		Store:        c.store,
		Locator:      locator.New(cfg.Data.Locations),
		Languages:    cfg.Languages.Resolver(),
		Cache:        c.cache,
		HeaderBlocks: cfg.Directory.HeaderBlocks,
		Logger:       logger,
	}
	c.reg, err = directory.NewRegistry(env, directory.RegistryOptions{
		Blueprints: blueprints,
		Types:      cfg.Directory.Types,
	})
	if err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}

	// Initialize SQLite change log.
	c.log, err = changelog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init changelog: %w", err)
	}

	logger.Info("Directories loaded",
		slog.Int("types", len(c.reg.All())),
		slog.Int("enabled", c.reg.Count()))
	return c, nil
}

// Run starts the HTTP host with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_driver", cfg.Data.Driver),
		slog.String("data_root", cfg.Data.Root),
		slog.String("blueprints", cfg.Directory.Blueprints),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// SSE broker.
	broker := sse.NewBroker(cfg.App.EventThrottle)
	defer broker.Close()

	svc := entryservice.New(c.reg, c.log, broker, logger)
	handler := newHTTPHandler(cfg, svc, broker)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: handler,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if c.root != "" && cfg.Data.Watch {
		g.Go(func() error {
			return watch.Watch(gCtx, c.root, c.cache, logger, broker.PublishStorageChange)
		})
	}

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
		defer signal.Stop(quit)

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
		// Stop the watcher as well when a signal ended the server.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHTTPHandler builds the chi router with health checks, the API and the
// event stream.
func newHTTPHandler(cfg *Config, svc *entryservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	// Mount API routes under /api; the SSE stream sits behind the same auth.
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// RunMCP serves the MCP tools on stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}

	c, err := newCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	svc := entryservice.New(c.reg, c.log, nil, logger)
	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, Version).ServeStdio()
}

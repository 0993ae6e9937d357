// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wikivault/internal/api"
	"github.com/starford/wikivault/internal/index"
	"github.com/starford/wikivault/internal/mcpserver"
	"github.com/starford/wikivault/internal/noteservice"
	"github.com/starford/wikivault/internal/sse"
	"github.com/starford/wikivault/internal/storage"
	"github.com/starford/wikivault/internal/vault"
)

const invalidateThrottle = 2 * time.Second

// runtime holds the components shared by every run mode.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *noteservice.Service
}

func newApplication(opts []Option, defaultLog io.Writer) (*application, error) {
	app := &application{logOutput: defaultLog, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// open builds the store, optional name index and service. withIndex is
// false for one-shot commands, which resolve by walking the workspace.
func (a *application) open(logger *slog.Logger, withIndex bool, hook noteservice.EventFunc) (*runtime, error) {
	cfg := a.config
	store, err := storage.NewFS(cfg.Workspace.Path, storage.WithNoteExt(cfg.Resolver.NoteExt))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, store: store}
	svcOpts := []noteservice.Option{
		noteservice.WithDetector(cfg.Resolver.Detector()),
		noteservice.WithVaultScoped(cfg.Resolver.VaultScoped),
		noteservice.WithLogger(logger),
		noteservice.WithEventHook(hook),
	}
	if withIndex && cfg.SQLite.Enabled() {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		svcOpts = append(svcOpts, noteservice.WithIndex(db))
	}

	registry := vault.NewRegistry(store.Root(), cfg.Resolver.ScanOptions(), logger)
	rt.svc = noteservice.New(store, registry, svcOpts...)
	return rt, nil
}

func (rt *runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}

// syncIndex brings the name index up to date with the workspace. Failure
// only costs lookup speed, so it is logged and ignored.
func (rt *runtime) syncIndex() {
	if rt.db == nil {
		return
	}
	if err := index.Sync(rt.db, rt.store, rt.logger); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	if n, err := rt.db.Count(); err == nil {
		rt.logger.Info("index ready", slog.Int("notes", n))
	}
}

// watch keeps the index and the candidate caches current until ctx ends.
func (rt *runtime) watch(ctx context.Context, notify index.EventCallback) error {
	if rt.db == nil {
		rt.logger.Info("watcher: disabled without sqlite index")
		<-ctx.Done()
		return nil
	}
	return index.Watch(ctx, rt.db, rt.store, rt.logger, func(kind, path string) {
		rt.svc.HandleIndexEvent(kind, path)
		if notify != nil {
			notify(kind, path)
		}
	})
}

func (rt *runtime) loadVaults(ctx context.Context) {
	vaults, err := rt.svc.Vaults(ctx)
	if err != nil {
		rt.logger.Warn("vault scan failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("vaults discovered", slog.Int("count", len(vaults)))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	broker := sse.NewBroker(invalidateThrottle)
	defer broker.Close()

	rt, err := app.open(logger, true, broker.Notify)
	if err != nil {
		return err
	}
	defer rt.Close()

	var ready atomic.Bool

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
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Index the workspace, then follow changes.
	g.Go(func() error {
		rt.syncIndex()
		rt.loadVaults(gCtx)
		ready.Store(true)
		return rt.watch(gCtx, broker.Notify)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs go to stderr so they
// never mix with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	rt, err := app.open(logger, true, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.syncIndex()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := rt.watch(watchCtx, nil); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("mcp: serving on stdio", slog.String("workspace", rt.store.Root()))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// OpenService builds a service for one-shot commands. It skips the name
// index; the returned close function must be called when done.
func OpenService(opts ...Option) (*noteservice.Service, func() error, error) {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	rt, err := app.open(app.newLogger(), false, nil)
	if err != nil {
		return nil, nil, err
	}
	return rt.svc, rt.Close, nil
}

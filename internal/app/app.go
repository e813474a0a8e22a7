// Package app wires all smsynth subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/config"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/observe"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/server"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/store"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	cfgPath  string
	store    *store.Store
	metrics  *observe.Metrics
	tunables *config.Tunables
	watcher  *config.Watcher
	server   *server.Server

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of connecting from config.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics set instead of creating one from the global
// meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithConfigPath enables the config file watcher, so scoring tunables reload
// without a restart.
func WithConfigPath(path string) Option {
	return func(a *App) { a.cfgPath = path }
}

// New creates an App by wiring all subsystems together: logging, telemetry
// providers, the results store, the tunables registry with its optional file
// watcher, and the HTTP server.
//
// New performs all initialisation synchronously; a failing database
// connection fails construction rather than the first request.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("app: config: %w", err)
	}

	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	initLogging(cfg.Server.LogLevel)

	shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdownObs)

	if a.metrics == nil {
		m, err := observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, fmt.Errorf("app: init metrics: %w", err)
		}
		a.metrics = m
	}

	a.tunables = config.NewTunables(cfg.Scoring)
	if a.cfgPath != "" {
		w, err := config.NewWatcher(a.cfgPath, a.tunables.WatchOnChange)
		if err != nil {
			return nil, fmt.Errorf("app: config watcher: %w", err)
		}
		a.watcher = w
		a.tunables.BindWatcher(w)
		a.closers = append(a.closers, func(context.Context) error {
			w.Stop()
			return nil
		})
	}

	if a.store == nil && cfg.Database.PostgresDSN != "" {
		st, err := store.New(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("app: connect store: %w", err)
		}
		a.store = st
		a.closers = append(a.closers, func(context.Context) error {
			st.Close()
			return nil
		})
	}
	if a.store == nil {
		slog.Warn("persistence disabled; results will not be stored")
	}

	a.server = server.New(cfg, a.store, a.metrics, a.tunables)
	return a, nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("serving", "addr", a.cfg.Server.ListenAddr, "version", Version)
		if err := a.server.Start(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the HTTP server and runs all closers in order. Safe to call
// more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// Handler exposes the HTTP handler for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Tunables exposes the live scoring tunables registry.
func (a *App) Tunables() *config.Tunables {
	return a.tunables
}

// initLogging installs the default slog handler at the configured level.
func initLogging(level config.LogLevel) {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

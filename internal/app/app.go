package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/localsession"
	"github.com/specialistvlad/pipegrid/internal/metrics"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	metrics  *metrics.Metrics
	sessions session.SessionFactory

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// metrics. Bindings and the diagram are loaded by each operation, so watch
// mode always sees the current files.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logOut := cfg.LogOutput
	if logOut == nil {
		logOut = outW
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "runners", len(reg.Names()))

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		metrics:  metrics.New(),
		sessions: &localsession.SessionFactory{},
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the application's collectors.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Runners describes every registered runner, sorted by name.
func (a *App) Runners() []RunnerInfo {
	names := a.registry.Names()
	out := make([]RunnerInfo, 0, len(names))
	for _, name := range names {
		rr, _ := a.registry.Lookup(name)
		out = append(out, RunnerInfo{Name: name, Description: rr.Description})
	}
	return out
}

// RunnerInfo is a registered runner as shown by the runners command.
type RunnerInfo struct {
	Name        string
	Description string
}

// Close shuts down background servers.
func (a *App) Close(ctx context.Context) error {
	if err := a.closeHealthCheckServer(a.withLogger(ctx)); err != nil {
		return fmt.Errorf("failed to close health check server: %w", err)
	}
	return nil
}

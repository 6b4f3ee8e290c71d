package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neox5/vitalsync/internal/auth"
	"github.com/neox5/vitalsync/internal/channel"
	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/exporter"
	"github.com/neox5/vitalsync/internal/fetch"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/monitor"
	"github.com/neox5/vitalsync/internal/server"
	"github.com/neox5/vitalsync/internal/simulator"
	"github.com/neox5/vitalsync/internal/state"
)

// App holds initialized application components.
type App struct {
	Config             *config.Config
	Registry           *metric.Registry
	Store              *state.Store
	Simulator          *simulator.Simulator
	Gate               *auth.Gate
	Manager            *channel.Manager
	Server             *server.Server
	PrometheusExporter *exporter.PrometheusExporter
	OTELExporter       *exporter.OTELExporter
	Monitor            *monitor.Monitor

	logger *slog.Logger
}

// New initializes the application from a resolved configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := metric.Default()
	store := state.New(registry.Keys())

	sim, err := simulator.New(cfg.Provider.Simulator, registry, logger.With("component", "simulator"))
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	gate := auth.NewGate(sim, logger.With("component", "auth"))
	fetcher := fetch.New(sim, logger.With("component", "fetch"))

	manager, err := channel.New(registry, gate, fetcher, sim, store, channel.Options{
		PollInterval: cfg.Settings.PollInterval,
		Logger:       logger.With("component", "channel"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel manager: %w", err)
	}

	a := &App{
		Config:    cfg,
		Registry:  registry,
		Store:     store,
		Simulator: sim,
		Gate:      gate,
		Manager:   manager,
		logger:    logger,
	}

	if cfg.Display.Enabled {
		a.Server = server.New(cfg.Display.Port, registry, store)
	}

	if cfg.Export.PrometheusEnabled() {
		a.PrometheusExporter = exporter.NewPrometheusExporter(
			cfg.Export.Prometheus,
			cfg.Settings.InternalMetrics,
			registry,
			store,
			manager,
		)
	}

	if cfg.Export.OTELEnabled() {
		a.OTELExporter, err = exporter.NewOTELExporter(
			cfg.Export.OTEL,
			cfg.Settings.InternalMetrics,
			registry,
			store,
			manager,
		)
		if err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("failed to create OTEL exporter: %w", err)
		}
	}

	if cfg.Monitor.Enabled {
		a.Monitor, err = monitor.New(cfg.Monitor.Interval, logger.With("component", "monitor"), store, manager)
		if err != nil {
			logger.Warn("resource monitor disabled", "error", err)
		}
	}

	return a, nil
}

// Run starts the provider, activates every metric, and serves until ctx is
// cancelled or a server fails. All components are stopped before it returns.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	a.Simulator.Start()
	defer a.Simulator.Stop()

	if a.Monitor != nil {
		a.Monitor.Run(runCtx)
		defer a.Monitor.Wait()
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	if a.Server != nil {
		wg.Go(func() {
			if err := a.Server.Start(runCtx); err != nil {
				errChan <- fmt.Errorf("display server: %w", err)
			}
		})
	}

	if a.PrometheusExporter != nil {
		wg.Go(func() {
			if err := a.PrometheusExporter.Start(runCtx); err != nil {
				errChan <- fmt.Errorf("prometheus exporter: %w", err)
			}
		})
	}

	if a.OTELExporter != nil {
		wg.Go(func() {
			if err := a.OTELExporter.Start(runCtx); err != nil {
				errChan <- fmt.Errorf("otel exporter: %w", err)
			}
		})
	}

	wg.Go(func() {
		if err := a.Manager.ActivateAll(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("activation incomplete", "error", err)
			return
		}
		a.logger.Info("all metrics activated", "summary", a.summary())
	})

	var runErr error
	select {
	case runErr = <-errChan:
		a.logger.Error("component failed", "error", runErr)
	case <-runCtx.Done():
	}
	stop()

	if err := a.Manager.Close(); err != nil && !errors.Is(err, channel.ErrClosed) {
		a.logger.Warn("failed to close channel manager", "error", err)
	}

	if a.OTELExporter != nil {
		if err := a.OTELExporter.Stop(); err != nil {
			a.logger.Warn("failed to stop otel exporter", "error", err)
		}
	}

	wg.Wait()
	return runErr
}

func (a *App) summary() map[string]int {
	out := make(map[string]int)
	for status, n := range a.Store.Summary() {
		out[status.String()] = n
	}
	return out
}

package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter provides HTTP server for Prometheus metrics.
type PrometheusExporter struct {
	addr         string
	path         string
	server       *http.Server
	promRegistry *prometheus.Registry
}

// NewPrometheusExporter creates a Prometheus HTTP exporter that reads the
// state store on every scrape. stats may be nil when internal metrics are off.
func NewPrometheusExporter(
	cfg *config.PrometheusExportConfig,
	internal config.InternalMetricsConfig,
	registry *metric.Registry,
	store *state.Store,
	stats StatsSource,
) *PrometheusExporter {
	if !internal.Enabled {
		stats = nil
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(newCollector(registry, store, stats, internal.Format))

	addr := fmt.Sprintf(":%d", cfg.Port)

	return &PrometheusExporter{
		addr:         addr,
		path:         cfg.Path,
		promRegistry: promRegistry,
		server:       createHTTPServer(addr, cfg.Path, promRegistry, internal.Enabled),
	}
}

// Start begins serving HTTP requests. Blocks until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting prometheus exporter", "addr", e.addr, "path", e.path)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return e.Stop()
	}
}

// Stop gracefully stops the exporter.
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down prometheus exporter")
	return e.server.Shutdown(ctx)
}

// Handler returns the scrape endpoint handler.
func (e *PrometheusExporter) Handler() http.Handler {
	return e.server.Handler
}

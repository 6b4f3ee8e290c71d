package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/neox5/vitalsync"

// OTELExporter pushes the state store to an OTEL collector.
type OTELExporter struct {
	config        *config.OTELExportConfig
	meterProvider *sdkmetric.MeterProvider
	meter         otelmetric.Meter
	registry      *metric.Registry
	store         *state.Store
	stats         StatsSource
	format        config.NamingFormat
	instruments   instruments
	registration  otelmetric.Registration
}

// NewOTELExporter creates an OTEL exporter with a periodic OTLP push reader.
// stats may be nil when internal metrics are off.
func NewOTELExporter(
	cfg *config.OTELExportConfig,
	internal config.InternalMetricsConfig,
	registry *metric.Registry,
	store *state.Store,
	stats StatsSource,
) (*OTELExporter, error) {
	res, err := createOTELResource(cfg.Resource)
	if err != nil {
		return nil, err
	}

	exp, err := createOTLPExporter(cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Interval))
	return newOTELExporter(cfg, internal, res, reader, registry, store, stats)
}

// newOTELExporter wires instruments against any reader.
func newOTELExporter(
	cfg *config.OTELExportConfig,
	internal config.InternalMetricsConfig,
	res *resource.Resource,
	reader sdkmetric.Reader,
	registry *metric.Registry,
	store *state.Store,
	stats StatsSource,
) (*OTELExporter, error) {
	if !internal.Enabled {
		stats = nil
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	e := &OTELExporter{
		config:        cfg,
		meterProvider: meterProvider,
		meter:         meterProvider.Meter(meterName),
		registry:      registry,
		store:         store,
		stats:         stats,
		format:        internal.Format,
	}

	if err := registerOTELInstruments(e); err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, err
	}

	return e, nil
}

// Start blocks until ctx is cancelled. The periodic reader pushes on its own.
func (e *OTELExporter) Start(ctx context.Context) error {
	slog.Info("starting otel exporter",
		"endpoint", e.config.GetEndpoint(),
		"transport", e.config.Transport,
		"interval", e.config.Interval,
	)

	<-ctx.Done()
	return nil
}

// Stop unregisters the callback and flushes pending data.
func (e *OTELExporter) Stop() error {
	slog.Info("shutting down otel exporter")

	if e.registration != nil {
		if err := e.registration.Unregister(); err != nil {
			slog.Warn("failed to unregister otel callback", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}
	return nil
}

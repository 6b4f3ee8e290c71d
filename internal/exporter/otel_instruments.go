package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const otelStatusName = "vitalsync.metric.status"

type gaugeInstrument struct {
	metric metric.Descriptor
	gauge  otelmetric.Float64ObservableGauge
}

type counterInstrument struct {
	counter internalCounter
	obs     otelmetric.Int64ObservableCounter
}

type instruments struct {
	values   []gaugeInstrument
	counters []counterInstrument
	status   otelmetric.Int64ObservableGauge
}

// registerOTELInstruments creates and registers instruments for all metrics.
func registerOTELInstruments(e *OTELExporter) error {
	var insts instruments

	for _, d := range e.registry.Metrics() {
		gauge, err := e.meter.Float64ObservableGauge(
			d.OTELName,
			otelmetric.WithDescription(d.Description),
			otelmetric.WithUnit(d.Unit),
		)
		if err != nil {
			return fmt.Errorf("failed to create gauge %q: %w", d.OTELName, err)
		}
		insts.values = append(insts.values, gaugeInstrument{metric: d, gauge: gauge})

		slog.Info("registered otel metric", "name", d.OTELName, "shape", d.Shape, "unit", d.Unit)
	}

	status, err := e.meter.Int64ObservableGauge(
		otelStatusName,
		otelmetric.WithDescription("Synchronization status per metric (1 for the current status)"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gauge %q: %w", otelStatusName, err)
	}
	insts.status = status

	if e.stats != nil {
		for _, ic := range internalCounters {
			name := ic.name(e.format, true)
			counter, err := e.meter.Int64ObservableCounter(name, otelmetric.WithDescription(ic.description))
			if err != nil {
				return fmt.Errorf("failed to create counter %q: %w", name, err)
			}
			insts.counters = append(insts.counters, counterInstrument{counter: ic, obs: counter})
		}
		slog.Info("registered otel internal metrics", "format", e.format, "count", len(insts.counters))
	}

	e.instruments = insts

	return registerOTELCallback(e)
}

// registerOTELCallback registers the observation callback for all instruments.
func registerOTELCallback(e *OTELExporter) error {
	observables := []otelmetric.Observable{e.instruments.status}
	for _, inst := range e.instruments.values {
		observables = append(observables, inst.gauge)
	}
	for _, inst := range e.instruments.counters {
		observables = append(observables, inst.obs)
	}

	reg, err := e.meter.RegisterCallback(
		func(ctx context.Context, observer otelmetric.Observer) error {
			slog.Debug("otel collect", "metrics", len(e.instruments.values))

			for _, inst := range e.instruments.values {
				entry := e.store.Get(inst.metric.Key)
				metricAttr := attribute.String("metric", string(inst.metric.Key))

				for _, s := range state.Statuses {
					var v int64
					if entry.Status == s {
						v = 1
					}
					observer.ObserveInt64(e.instruments.status, v,
						otelmetric.WithAttributes(metricAttr, attribute.String("status", s.String())))
				}

				for _, p := range observe(inst.metric, entry) {
					if p.component != "" {
						observer.ObserveFloat64(inst.gauge, p.value,
							otelmetric.WithAttributes(attribute.String("component", p.component)))
						continue
					}
					observer.ObserveFloat64(inst.gauge, p.value)
				}
			}

			if e.stats != nil {
				stats := e.stats.Stats()
				for _, inst := range e.instruments.counters {
					observer.ObserveInt64(inst.obs, inst.counter.read(stats))
				}
			}
			return nil
		},
		observables...,
	)
	if err != nil {
		return fmt.Errorf("failed to register callback: %w", err)
	}

	e.registration = reg
	return nil
}

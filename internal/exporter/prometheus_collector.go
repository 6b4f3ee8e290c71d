package exporter

import (
	"log/slog"

	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusMetricName   = "vitalsync_metric_status"
	observedMetricName = "vitalsync_metric_observed_timestamp_seconds"
)

// valueDescriptor pairs a registry descriptor with its Prometheus desc.
type valueDescriptor struct {
	metric metric.Descriptor
	desc   *prometheus.Desc
}

type counterDescriptor struct {
	counter internalCounter
	desc    *prometheus.Desc
}

// collector implements prometheus.Collector over the state store.
type collector struct {
	store    *state.Store
	stats    StatsSource
	values   []valueDescriptor
	counters []counterDescriptor
	status   *prometheus.Desc
	observed *prometheus.Desc
}

// newCollector creates a collector for every registry metric.
func newCollector(
	registry *metric.Registry,
	store *state.Store,
	stats StatsSource,
	format config.NamingFormat,
) *collector {
	c := &collector{
		store: store,
		stats: stats,
		status: prometheus.NewDesc(
			statusMetricName,
			"Synchronization status per metric (1 for the current status)",
			[]string{"metric", "status"},
			nil,
		),
		observed: prometheus.NewDesc(
			observedMetricName,
			"Observation time of the current sample per metric",
			[]string{"metric"},
			nil,
		),
	}

	for _, d := range registry.Metrics() {
		var labelNames []string
		if d.Shape == metric.ShapePaired {
			labelNames = []string{"component"}
		}
		var constLabels prometheus.Labels
		if d.Unit != "" {
			constLabels = prometheus.Labels{"unit": d.Unit}
		}

		c.values = append(c.values, valueDescriptor{
			metric: d,
			desc: prometheus.NewDesc(
				d.PrometheusName,
				d.Description,
				labelNames,
				constLabels,
			),
		})

		slog.Info("registered prometheus metric",
			"name", d.PrometheusName,
			"shape", d.Shape,
			"labels", labelNames)
	}

	if stats != nil {
		for _, ic := range internalCounters {
			c.counters = append(c.counters, counterDescriptor{
				counter: ic,
				desc:    prometheus.NewDesc(ic.name(format, false), ic.description, nil, nil),
			})
		}
		slog.Info("registered prometheus internal metrics", "format", format, "count", len(c.counters))
	}

	return c
}

// Describe sends metric descriptors to the channel.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, v := range c.values {
		ch <- v.desc
	}
	for _, ic := range c.counters {
		ch <- ic.desc
	}
	ch <- c.status
	ch <- c.observed
}

// Collect reads the store and sends metrics to the channel.
// This is called on each Prometheus scrape.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, v := range c.values {
		key := string(v.metric.Key)
		e := c.store.Get(v.metric.Key)

		for _, s := range state.Statuses {
			val := 0.0
			if e.Status == s {
				val = 1
			}
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, val, key, s.String())
		}

		points := observe(v.metric, e)
		for _, p := range points {
			var labelValues []string
			if p.component != "" {
				labelValues = []string{p.component}
			}
			m, err := prometheus.NewConstMetric(v.desc, prometheus.GaugeValue, p.value, labelValues...)
			if err != nil {
				slog.Debug("skipping prometheus sample", "metric", key, "error", err)
				continue
			}
			ch <- m
		}

		if len(points) > 0 {
			ch <- prometheus.MustNewConstMetric(c.observed, prometheus.GaugeValue,
				float64(e.Sample.ObservedAt.UnixMilli())/1000, key)
		}
	}

	if c.stats != nil {
		stats := c.stats.Stats()
		for _, ic := range c.counters {
			ch <- prometheus.MustNewConstMetric(ic.desc, prometheus.CounterValue, float64(ic.counter.read(stats)))
		}
	}
}

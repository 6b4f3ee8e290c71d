package exporter

import (
	"github.com/neox5/vitalsync/internal/channel"
	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
)

// StatsSource exposes sync counters for internal metrics.
type StatsSource interface {
	Stats() channel.Stats
}

// point is one exported value of a metric entry. Paired metrics produce
// one point per component; other shapes produce a single unlabeled point.
type point struct {
	component string
	value     float64
}

// observe converts a store entry into exportable points. Only Ready entries
// carry values.
func observe(d metric.Descriptor, e state.Entry) []point {
	if e.Status != state.StatusReady || e.Sample == nil {
		return nil
	}

	v := e.Sample.Value
	switch d.Shape {
	case metric.ShapePaired:
		return []point{
			{component: d.Components[0], value: v.First},
			{component: d.Components[1], value: v.Second},
		}
	case metric.ShapeCategorical:
		return []point{{value: float64(v.Code)}}
	default:
		return []point{{value: v.First}}
	}
}

// internalCounter describes one sync counter in both naming conventions.
type internalCounter struct {
	underscore  string
	dot         string
	description string
	read        func(channel.Stats) int64
}

var internalCounters = []internalCounter{
	{
		underscore:  "vitalsync_sync_activations_total",
		dot:         "vitalsync.sync.activations.total",
		description: "Total number of metric activations",
		read:        func(s channel.Stats) int64 { return s.Activations },
	},
	{
		underscore:  "vitalsync_sync_fetches_total",
		dot:         "vitalsync.sync.fetches.total",
		description: "Total number of sample fetches",
		read:        func(s channel.Stats) int64 { return s.Fetches },
	},
	{
		underscore:  "vitalsync_sync_fetch_failures_total",
		dot:         "vitalsync.sync.fetch.failures.total",
		description: "Total number of failed sample fetches",
		read:        func(s channel.Stats) int64 { return s.FetchFailures },
	},
	{
		underscore:  "vitalsync_sync_writes_total",
		dot:         "vitalsync.sync.writes.total",
		description: "Total number of state store writes",
		read:        func(s channel.Stats) int64 { return s.Writes },
	},
	{
		underscore:  "vitalsync_sync_discarded_total",
		dot:         "vitalsync.sync.discarded.total",
		description: "Total number of results discarded after release",
		read:        func(s channel.Stats) int64 { return s.Discarded },
	},
}

// name picks the counter name for a format. native resolves to the
// exporter's own convention.
func (c internalCounter) name(format config.NamingFormat, nativeDot bool) string {
	switch format {
	case config.NamingFormatDot:
		return c.dot
	case config.NamingFormatUnderscore:
		return c.underscore
	default:
		if nativeDot {
			return c.dot
		}
		return c.underscore
	}
}

package exporter

import (
	"time"

	"github.com/neox5/vitalsync/internal/channel"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/sample"
	"github.com/neox5/vitalsync/internal/state"
)

var observedAt = time.Unix(1700000000, 0)

type fixedStats channel.Stats

func (s fixedStats) Stats() channel.Stats { return channel.Stats(s) }

func testRegistry() *metric.Registry {
	return metric.MustNew(
		metric.Descriptor{
			Key:         "pulse",
			Identifiers: []string{"p"},
			Scopes:      []metric.Scope{"p"},
			Shape:       metric.ShapeScalar,
			Unit:        "count/min",
			Description: "Pulse rate",
		},
		metric.Descriptor{
			Key:         "bp",
			Identifiers: []string{"s", "d"},
			Scopes:      []metric.Scope{"s", "d"},
			Shape:       metric.ShapePaired,
			Components:  []string{"systolic", "diastolic"},
			Unit:        "mmHg",
			Description: "Blood pressure",
		},
		metric.Descriptor{
			Key:         "stage",
			Identifiers: []string{"c"},
			Scopes:      []metric.Scope{"c"},
			Shape:       metric.ShapeCategorical,
			Categories:  []string{"a", "b", "c"},
			Description: "Stage",
		},
	)
}

// testStore holds pulse=72 and bp=120/80; stage stays Loading.
func testStore(r *metric.Registry) *state.Store {
	store := state.New(r.Keys())
	store.Set("pulse", state.Ready(sample.New("pulse", sample.Scalar(72), observedAt)))
	store.Set("bp", state.Ready(sample.New("bp", sample.Paired(120, 80), observedAt)))
	return store
}

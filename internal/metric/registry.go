package metric

import (
	"fmt"
	"slices"
)

// Default metric keys.
const (
	StepCount        Key = "step_count"
	Sleep            Key = "sleep"
	HeartRate        Key = "heart_rate"
	BloodPressure    Key = "blood_pressure"
	BodyTemperature  Key = "body_temperature"
	OxygenSaturation Key = "oxygen_saturation"
)

// Provider type identifiers.
const (
	IdentifierStepCount              = "HKQuantityTypeIdentifierStepCount"
	IdentifierSleepAnalysis          = "HKCategoryTypeIdentifierSleepAnalysis"
	IdentifierHeartRate              = "HKQuantityTypeIdentifierHeartRate"
	IdentifierBloodPressureSystolic  = "HKQuantityTypeIdentifierBloodPressureSystolic"
	IdentifierBloodPressureDiastolic = "HKQuantityTypeIdentifierBloodPressureDiastolic"
	IdentifierBodyTemperature        = "HKQuantityTypeIdentifierBodyTemperature"
	IdentifierOxygenSaturation       = "HKQuantityTypeIdentifierOxygenSaturation"
)

// SleepStages names sleep analysis category codes.
var SleepStages = []string{
	"inBed",
	"asleepUnspecified",
	"awake",
	"asleepCore",
	"asleepDeep",
	"asleepREM",
}

// Registry holds the static metric table in declaration order.
type Registry struct {
	metrics []Descriptor
	index   map[Key]int
}

// New creates a registry, rejecting duplicate keys and malformed descriptors.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		metrics: make([]Descriptor, 0, len(descriptors)),
		index:   make(map[Key]int, len(descriptors)),
	}

	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.index[d.Key]; exists {
			return nil, fmt.Errorf("metric %q defined twice", d.Key)
		}
		if d.PrometheusName == "" {
			d.PrometheusName = "vitalsync_" + string(d.Key)
		}
		if d.OTELName == "" {
			d.OTELName = "vitalsync." + string(d.Key)
		}
		if d.Shape == ShapePaired && len(d.Components) == 0 {
			d.Components = []string{"first", "second"}
		}
		d.Identifiers = slices.Clone(d.Identifiers)
		d.Scopes = slices.Clone(d.Scopes)
		d.Categories = slices.Clone(d.Categories)
		d.Components = slices.Clone(d.Components)

		r.index[d.Key] = len(r.metrics)
		r.metrics = append(r.metrics, d)
	}

	return r, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew(descriptors ...Descriptor) *Registry {
	r, err := New(descriptors...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the six tracked health metrics.
func Default() *Registry {
	return MustNew(
		quantity(StepCount, "Steps", IdentifierStepCount, "count",
			"Most recent step count sample").withPoll(),
		Descriptor{
			Key:         Sleep,
			Label:       "Sleep",
			Identifiers: []string{IdentifierSleepAnalysis},
			Scopes:      []Scope{IdentifierSleepAnalysis},
			Shape:       ShapeCategorical,
			Description: "Most recent sleep analysis stage",
			Categories:  SleepStages,
		},
		quantity(HeartRate, "Heart Rate", IdentifierHeartRate, "count/min",
			"Most recent heart rate sample"),
		Descriptor{
			Key:   BloodPressure,
			Label: "Blood Pressure",
			Identifiers: []string{
				IdentifierBloodPressureSystolic,
				IdentifierBloodPressureDiastolic,
			},
			Scopes: []Scope{
				IdentifierBloodPressureSystolic,
				IdentifierBloodPressureDiastolic,
			},
			Shape:       ShapePaired,
			Components:  []string{"systolic", "diastolic"},
			Unit:        "mmHg",
			Description: "Most recent systolic/diastolic blood pressure pair",
		},
		quantity(BodyTemperature, "Temperature", IdentifierBodyTemperature, "degC",
			"Most recent body temperature sample"),
		quantity(OxygenSaturation, "Pulse Oximeter", IdentifierOxygenSaturation, "%",
			"Most recent blood oxygen saturation sample"),
	)
}

func quantity(key Key, label, identifier, unit, description string) Descriptor {
	return Descriptor{
		Key:         key,
		Label:       label,
		Identifiers: []string{identifier},
		Scopes:      []Scope{Scope(identifier)},
		Shape:       ShapeScalar,
		Unit:        unit,
		Description: description,
	}
}

func (d Descriptor) withPoll() Descriptor {
	d.Poll = true
	return d
}

// DescriptorOf returns the descriptor for key. Unknown keys are a programming
// error and panic.
func (r *Registry) DescriptorOf(key Key) Descriptor {
	i, ok := r.index[key]
	if !ok {
		panic(fmt.Sprintf("metric: unknown key %q", key))
	}
	return r.metrics[i]
}

// Lookup returns the descriptor for key if it is registered.
func (r *Registry) Lookup(key Key) (Descriptor, bool) {
	i, ok := r.index[key]
	if !ok {
		return Descriptor{}, false
	}
	return r.metrics[i], true
}

// Keys returns all metric keys in declaration order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, len(r.metrics))
	for i, d := range r.metrics {
		keys[i] = d.Key
	}
	return keys
}

// Metrics returns all registered metric descriptors.
func (r *Registry) Metrics() []Descriptor {
	return slices.Clone(r.metrics)
}

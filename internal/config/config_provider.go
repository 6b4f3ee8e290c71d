package config

import (
	"fmt"
	"maps"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
)

const (
	ProviderTypeSimulator = "simulator"

	DefaultSimulatorTick           = 1 * time.Second
	DefaultSimulatorNotifyInterval = 2 * time.Second
)

// ProviderConfig selects the health data provider.
type ProviderConfig struct {
	Type      string
	Simulator *SimulatorConfig
}

// Validate applies defaults and validates provider configuration.
func (p *ProviderConfig) Validate() error {
	if p.Type == "" {
		p.Type = ProviderTypeSimulator
	}
	if p.Type != ProviderTypeSimulator {
		return fmt.Errorf("invalid provider type: %s (must be simulator)", p.Type)
	}
	if p.Simulator == nil {
		p.Simulator = &SimulatorConfig{Available: true}
	}
	return p.Simulator.Validate()
}

// SimulatorConfig defines the simulated provider.
type SimulatorConfig struct {
	Available      bool
	Deny           []metric.Scope
	Tick           time.Duration
	NotifyInterval time.Duration
	Samples        map[string]SampleConfig
}

// SampleConfig defines the simulated range of one provider identifier.
// Values are drawn as integers in [Min, Max] and multiplied by Scale.
type SampleConfig struct {
	Min        int
	Max        int
	Scale      float64
	Accumulate bool
	Absent     bool
}

// DefaultSamples returns plausible ranges for the default registry identifiers.
func DefaultSamples() map[string]SampleConfig {
	return map[string]SampleConfig{
		metric.IdentifierStepCount:              {Min: 0, Max: 30, Scale: 1, Accumulate: true},
		metric.IdentifierSleepAnalysis:          {Min: 0, Max: len(metric.SleepStages) - 1, Scale: 1},
		metric.IdentifierHeartRate:              {Min: 55, Max: 110, Scale: 1},
		metric.IdentifierBloodPressureSystolic:  {Min: 105, Max: 140, Scale: 1},
		metric.IdentifierBloodPressureDiastolic: {Min: 65, Max: 90, Scale: 1},
		metric.IdentifierBodyTemperature:        {Min: 361, Max: 379, Scale: 0.1},
		metric.IdentifierOxygenSaturation:       {Min: 94, Max: 100, Scale: 1},
	}
}

// Validate applies defaults and validates simulator configuration.
func (c *SimulatorConfig) Validate() error {
	if c.Tick == 0 {
		c.Tick = DefaultSimulatorTick
	}
	if c.NotifyInterval == 0 {
		c.NotifyInterval = DefaultSimulatorNotifyInterval
	}
	if c.Tick < 0 {
		return fmt.Errorf("invalid simulator tick: %s", c.Tick)
	}
	if c.NotifyInterval < 0 {
		return fmt.Errorf("invalid simulator notify interval: %s", c.NotifyInterval)
	}

	samples := DefaultSamples()
	maps.Copy(samples, c.Samples)
	c.Samples = samples

	for id, s := range c.Samples {
		if s.Min > s.Max {
			return fmt.Errorf("sample %q: min %d greater than max %d", id, s.Min, s.Max)
		}
		if s.Scale <= 0 {
			return fmt.Errorf("sample %q: scale must be positive", id)
		}
	}
	return nil
}

package config

import "time"

// RawProviderConfig selects and configures the health data provider
type RawProviderConfig struct {
	Type      string              `yaml:"type"`
	Simulator *RawSimulatorConfig `yaml:"simulator,omitempty"`
}

// RawSimulatorConfig defines the simulated provider
type RawSimulatorConfig struct {
	Available      *bool                      `yaml:"available,omitempty"`
	Deny           []string                   `yaml:"deny,omitempty"`
	Tick           time.Duration              `yaml:"tick"`
	NotifyInterval time.Duration              `yaml:"notify_interval"`
	Samples        map[string]RawSampleConfig `yaml:"samples,omitempty"`
}

// RawSampleConfig defines how one provider identifier is simulated
type RawSampleConfig struct {
	Min        *int     `yaml:"min,omitempty"`
	Max        *int     `yaml:"max,omitempty"`
	Scale      *float64 `yaml:"scale,omitempty"`
	Accumulate *bool    `yaml:"accumulate,omitempty"`
	Absent     bool     `yaml:"absent,omitempty"`
}

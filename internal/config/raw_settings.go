package config

import "time"

// RawSettingsConfig holds general application settings
type RawSettingsConfig struct {
	PollInterval    time.Duration            `yaml:"poll_interval"`
	InternalMetrics RawInternalMetricsConfig `yaml:"internal_metrics"`
}

// RawInternalMetricsConfig controls vitalsync's self-monitoring metrics
type RawInternalMetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
}

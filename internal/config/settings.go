package config

import (
	"fmt"
	"time"
)

// DefaultPollInterval is the fallback polling period for metrics that poll.
const DefaultPollInterval = 10 * time.Second

// SettingsConfig holds general application settings.
type SettingsConfig struct {
	PollInterval    time.Duration
	InternalMetrics InternalMetricsConfig
}

// InternalMetricsConfig controls vitalsync's self-monitoring metrics.
type InternalMetricsConfig struct {
	Enabled bool
	Format  NamingFormat
}

// NamingFormat defines the naming convention for internal metrics.
type NamingFormat string

const (
	// NamingFormatNative uses each exporter's native convention
	// (underscore for Prometheus, dot for OTEL)
	NamingFormatNative NamingFormat = "native"

	// NamingFormatUnderscore forces underscore-separated names
	NamingFormatUnderscore NamingFormat = "underscore"

	// NamingFormatDot forces dot-separated names
	NamingFormatDot NamingFormat = "dot"
)

// Validate applies defaults and validates settings configuration.
func (s *SettingsConfig) Validate() error {
	if s.PollInterval == 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.PollInterval < 0 {
		return fmt.Errorf("invalid poll interval: %s", s.PollInterval)
	}

	if s.InternalMetrics.Format == "" {
		s.InternalMetrics.Format = NamingFormatNative
	}

	switch s.InternalMetrics.Format {
	case NamingFormatNative, NamingFormatUnderscore, NamingFormatDot:
		return nil
	default:
		return fmt.Errorf("invalid naming format: %s (must be native, underscore, or dot)", s.InternalMetrics.Format)
	}
}

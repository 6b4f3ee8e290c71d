package config

import (
	"fmt"
	"maps"

	"github.com/neox5/vitalsync/internal/metric"
)

// Resolve converts raw configuration into a defaulted, validated Config
func Resolve(raw *RawConfig) (*Config, error) {
	settings, err := resolveSettings(&raw.Settings)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	provider, err := resolveProvider(&raw.Provider)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	display := DisplayConfig{
		Enabled: boolOr(raw.Display.Enabled, true),
		Port:    raw.Display.Port,
	}
	if err := display.Validate(); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}

	monitor := MonitorConfig{
		Enabled:  boolOr(raw.Monitor.Enabled, true),
		Interval: raw.Monitor.Interval,
	}
	if err := monitor.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	export, err := resolveExport(&raw.Export)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &Config{
		Settings: settings,
		Provider: provider,
		Display:  display,
		Monitor:  monitor,
		Export:   export,
	}, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg, err := Resolve(&RawConfig{})
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// resolveSettings converts raw settings config to resolved settings config
func resolveSettings(raw *RawSettingsConfig) (SettingsConfig, error) {
	result := SettingsConfig{
		PollInterval: raw.PollInterval,
		InternalMetrics: InternalMetricsConfig{
			Enabled: raw.InternalMetrics.Enabled,
			Format:  NamingFormat(raw.InternalMetrics.Format),
		},
	}

	if err := result.Validate(); err != nil {
		return SettingsConfig{}, err
	}

	return result, nil
}

// resolveProvider converts raw provider config, layering sample overrides onto defaults
func resolveProvider(raw *RawProviderConfig) (ProviderConfig, error) {
	result := ProviderConfig{Type: raw.Type}

	if sim := raw.Simulator; sim != nil {
		deny := make([]metric.Scope, len(sim.Deny))
		for i, s := range sim.Deny {
			deny[i] = metric.Scope(s)
		}

		result.Simulator = &SimulatorConfig{
			Available:      boolOr(sim.Available, true),
			Deny:           deny,
			Tick:           sim.Tick,
			NotifyInterval: sim.NotifyInterval,
			Samples:        resolveSamples(sim.Samples),
		}
	}

	if err := result.Validate(); err != nil {
		return ProviderConfig{}, err
	}

	return result, nil
}

// resolveSamples merges per-field overrides onto the default sample ranges
func resolveSamples(raw map[string]RawSampleConfig) map[string]SampleConfig {
	defaults := DefaultSamples()
	result := make(map[string]SampleConfig, len(raw))

	for id, r := range raw {
		s, ok := defaults[id]
		if !ok {
			s = SampleConfig{Scale: 1}
		}
		if r.Min != nil {
			s.Min = *r.Min
		}
		if r.Max != nil {
			s.Max = *r.Max
		}
		if r.Scale != nil {
			s.Scale = *r.Scale
		}
		if r.Accumulate != nil {
			s.Accumulate = *r.Accumulate
		}
		s.Absent = r.Absent
		result[id] = s
	}

	return result
}

// resolveExport converts raw export config to resolved export config
func resolveExport(raw *RawExportConfig) (ExportConfig, error) {
	result := ExportConfig{}

	if raw.Prometheus != nil {
		result.Prometheus = &PrometheusExportConfig{
			Enabled: raw.Prometheus.Enabled,
			Port:    raw.Prometheus.Port,
			Path:    raw.Prometheus.Path,
		}
	}

	if raw.OTEL != nil {
		result.OTEL = &OTELExportConfig{
			Enabled:   raw.OTEL.Enabled,
			Transport: raw.OTEL.Transport,
			Host:      raw.OTEL.Host,
			Port:      raw.OTEL.Port,
			Interval:  raw.OTEL.Interval,
			Resource:  copyStringMap(raw.OTEL.Resource),
			Headers:   copyStringMap(raw.OTEL.Headers),
		}
	}

	if err := result.Validate(); err != nil {
		return ExportConfig{}, err
	}

	return result, nil
}

// copyStringMap creates a copy of a string map (handles nil)
func copyStringMap(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	maps.Copy(dst, src)
	return dst
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

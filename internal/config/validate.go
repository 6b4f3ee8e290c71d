package config

import (
	"fmt"
)

// Validate performs syntactic validation on raw config
func Validate(raw *RawConfig) error {
	return validateRawSyntax(raw)
}

// validateRawSyntax performs basic syntactic validation on raw config
func validateRawSyntax(raw *RawConfig) error {
	if raw.Settings.PollInterval < 0 {
		return fmt.Errorf("settings: poll_interval cannot be negative")
	}

	if sim := raw.Provider.Simulator; sim != nil {
		for i, scope := range sim.Deny {
			if scope == "" {
				return fmt.Errorf("provider.simulator.deny[%d]: identifier cannot be empty", i)
			}
		}
		for id, s := range sim.Samples {
			if id == "" {
				return fmt.Errorf("provider.simulator.samples: identifier cannot be empty")
			}
			if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
				return fmt.Errorf("provider.simulator.samples %q: min %d greater than max %d", id, *s.Min, *s.Max)
			}
		}
	}

	if raw.Export.OTEL != nil {
		switch raw.Export.OTEL.Transport {
		case "", "grpc", "http":
		default:
			return fmt.Errorf("export.otel: invalid transport %q", raw.Export.OTEL.Transport)
		}
	}

	return nil
}

package config

import (
	"fmt"
	"time"
)

const (
	// Prometheus defaults
	DefaultPrometheusPort = 9090
	DefaultPrometheusPath = "/metrics"

	// OTEL defaults
	DefaultOTELInterval  = 10 * time.Second
	DefaultOTELTransport = "grpc"
	DefaultOTELHost      = "localhost"
	DefaultOTELPortGRPC  = 4317
	DefaultOTELPortHTTP  = 4318
	DefaultServiceName   = "vitalsync"
)

// ExportConfig defines how the state store is exposed as telemetry.
type ExportConfig struct {
	Prometheus *PrometheusExportConfig
	OTEL       *OTELExportConfig
}

// Validate applies defaults and validates export configuration.
func (e *ExportConfig) Validate() error {
	// Default to Prometheus enabled if no exporters configured
	if e.Prometheus == nil && e.OTEL == nil {
		e.Prometheus = &PrometheusExportConfig{
			Enabled: true,
			Port:    DefaultPrometheusPort,
			Path:    DefaultPrometheusPath,
		}
		return nil
	}

	if e.Prometheus != nil {
		if err := e.Prometheus.Validate(); err != nil {
			return err
		}
	}

	if e.OTEL != nil {
		if err := e.OTEL.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// PrometheusEnabled reports whether the Prometheus endpoint is served.
func (e *ExportConfig) PrometheusEnabled() bool {
	return e.Prometheus != nil && e.Prometheus.Enabled
}

// OTELEnabled reports whether OTEL push export runs.
func (e *ExportConfig) OTELEnabled() bool {
	return e.OTEL != nil && e.OTEL.Enabled
}

// PrometheusExportConfig defines Prometheus pull endpoint settings.
type PrometheusExportConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Validate applies defaults and validates Prometheus configuration.
func (c *PrometheusExportConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Port == 0 {
		c.Port = DefaultPrometheusPort
	}
	if c.Path == "" {
		c.Path = DefaultPrometheusPath
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid prometheus port: %d", c.Port)
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("invalid prometheus path: %q (must start with /)", c.Path)
	}

	return nil
}

// OTELExportConfig defines OTEL push settings.
type OTELExportConfig struct {
	Enabled   bool
	Transport string
	Host      string
	Port      int
	Interval  time.Duration
	Resource  map[string]string
	Headers   map[string]string
}

// Validate applies defaults and validates OTEL configuration.
func (c *OTELExportConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Transport == "" {
		c.Transport = DefaultOTELTransport
	}
	if c.Transport != "grpc" && c.Transport != "http" {
		return fmt.Errorf("invalid transport: %s (must be grpc or http)", c.Transport)
	}

	if c.Host == "" {
		c.Host = DefaultOTELHost
	}

	// Port default depends on transport
	if c.Port == 0 {
		if c.Transport == "grpc" {
			c.Port = DefaultOTELPortGRPC
		} else {
			c.Port = DefaultOTELPortHTTP
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid otel port: %d", c.Port)
	}

	if c.Interval == 0 {
		c.Interval = DefaultOTELInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("invalid otel interval: %s", c.Interval)
	}

	if c.Resource == nil {
		c.Resource = make(map[string]string)
	}
	if _, exists := c.Resource["service.name"]; !exists {
		c.Resource["service.name"] = DefaultServiceName
	}

	return nil
}

// GetEndpoint returns the full endpoint address.
func (c *OTELExportConfig) GetEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

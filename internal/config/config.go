package config

import (
	"fmt"
	"time"
)

const (
	DefaultDisplayPort     = 8080
	DefaultMonitorInterval = 30 * time.Second
)

// Config holds the complete application configuration.
type Config struct {
	Settings SettingsConfig
	Provider ProviderConfig
	Display  DisplayConfig
	Monitor  MonitorConfig
	Export   ExportConfig
}

// DisplayConfig defines the status screen server.
type DisplayConfig struct {
	Enabled bool
	Port    int
}

// Validate applies defaults and validates display configuration.
func (c *DisplayConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port == 0 {
		c.Port = DefaultDisplayPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid display port: %d", c.Port)
	}
	return nil
}

// MonitorConfig defines the resource monitor.
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Validate applies defaults and validates monitor configuration.
func (c *MonitorConfig) Validate() error {
	if c.Interval == 0 {
		c.Interval = DefaultMonitorInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("invalid monitor interval: %s", c.Interval)
	}
	return nil
}

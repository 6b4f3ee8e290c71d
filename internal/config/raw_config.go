package config

import "time"

// RawConfig represents unparsed YAML structure
type RawConfig struct {
	Settings RawSettingsConfig `yaml:"settings"`
	Provider RawProviderConfig `yaml:"provider"`
	Display  RawDisplayConfig  `yaml:"display"`
	Monitor  RawMonitorConfig  `yaml:"monitor"`
	Export   RawExportConfig   `yaml:"export"`
}

// RawDisplayConfig defines the status screen server
type RawDisplayConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Port    int   `yaml:"port"`
}

// RawMonitorConfig defines the resource monitor
type RawMonitorConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Interval time.Duration `yaml:"interval"`
}

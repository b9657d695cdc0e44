package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/awion/sentinel-dash/public/client"
)

// Config represents the application configuration
type Config struct {
	General struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
	} `yaml:"general"`

	Logging struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		File    string `yaml:"file"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"logging"`

	API client.Config `yaml:"api"`

	Dashboard struct {
		RefreshInterval time.Duration `yaml:"refreshInterval"`
		LogLimit        int           `yaml:"logLimit"`
		ColorEnabled    bool          `yaml:"colorEnabled"`
		MaxCellWidth    int           `yaml:"maxCellWidth"`
	} `yaml:"dashboard"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults so the dashboard can run against a local server out of the box.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}
	config.Dashboard.ColorEnabled = true

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults fills in default values for missing configuration
func setDefaults(config *Config) {
	// General defaults
	if config.General.Name == "" {
		config.General.Name = "SentinelForge Dashboard"
	}
	if config.General.Version == "" {
		config.General.Version = Version
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}

	// API defaults
	if config.API.BaseURL == "" {
		config.API.BaseURL = "http://127.0.0.1:8000"
	}

	// Dashboard defaults
	if config.Dashboard.RefreshInterval == 0 {
		config.Dashboard.RefreshInterval = 15 * time.Second
	}
	if config.Dashboard.LogLimit == 0 {
		config.Dashboard.LogLimit = 100
	}
	if config.Dashboard.MaxCellWidth == 0 {
		config.Dashboard.MaxCellWidth = 48
	}

	// Metrics defaults
	if config.Metrics.Addr == "" {
		config.Metrics.Addr = "127.0.0.1:9464"
	}
}

// validateConfig checks if the configuration is valid
func validateConfig(config *Config) error {
	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level: %s", config.Logging.Level)
	}

	switch config.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging format: %s", config.Logging.Format)
	}

	if _, err := client.NormalizeBaseURL(config.API.BaseURL); err != nil {
		return err
	}
	if config.API.Timeout < 0 {
		return fmt.Errorf("api timeout cannot be negative")
	}

	if config.Dashboard.RefreshInterval <= 0 {
		return fmt.Errorf("dashboard refresh interval must be positive")
	}
	if config.Dashboard.LogLimit < 0 {
		return fmt.Errorf("dashboard log limit cannot be negative")
	}

	return nil
}

// SaveConfig writes the configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}

// CreateDefaultConfig generates a default configuration file
func CreateDefaultConfig(path string) error {
	config := &Config{}

	// General section
	config.General.Name = "SentinelForge Dashboard"
	config.General.Description = "Terminal dashboard for the SentinelForge SOC"
	config.General.Version = Version

	// Logging section
	config.Logging.Level = "info"
	config.Logging.Format = "console"
	config.Logging.File = "sentinel-dash.log"
	config.Logging.Verbose = false

	// API section
	config.API.BaseURL = "http://127.0.0.1:8000"

	// Dashboard section
	config.Dashboard.RefreshInterval = 15 * time.Second
	config.Dashboard.LogLimit = 100
	config.Dashboard.ColorEnabled = true
	config.Dashboard.MaxCellWidth = 48

	// Metrics section
	config.Metrics.Enabled = false
	config.Metrics.Addr = "127.0.0.1:9464"

	return SaveConfig(config, path)
}

// Version is the dashboard release
const Version = "0.1.0"

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 100, cfg.Dashboard.LogLimit)
	assert.True(t, cfg.Dashboard.ColorEnabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
api:
  baseURL: https://soc.example.com/
  timeout: 5s
dashboard:
  refreshInterval: 30s
  logLimit: 50
  colorEnabled: false
metrics:
  enabled: true
  addr: ":9100"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "https://soc.example.com/", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 50, cfg.Dashboard.LogLimit)
	assert.False(t, cfg.Dashboard.ColorEnabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad level":    "logging:\n  level: loud\n",
		"bad format":   "logging:\n  format: xml\n",
		"bad api url":  "api:\n  baseURL: ftp://soc\n",
		"negative":     "dashboard:\n  refreshInterval: -1s\n",
		"broken yaml":  "api: [\n",
		"neg timeout":  "api:\n  timeout: -2s\n",
		"neg loglimit": "dashboard:\n  logLimit: -5\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestCreateDefaultConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "SentinelForge Dashboard", cfg.General.Name)
	assert.Equal(t, 15*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, "sentinel-dash.log", cfg.Logging.File)
}

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "SentinelForge dashboard v0.1.0\n", out.String())
}

func TestInitConfigWritesFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"init-config", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Saved configuration to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "refreshInterval: 15s")

	cmd = newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"init-config", "--config", path})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"init-config", "--config", path, "--force"})
	assert.NoError(t, cmd.Execute())
}

func TestRunDashboardAgainstServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/alerts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"severity":"critical","rule_id":"IMPOSSIBLE_TRAVEL","description":"login from two countries","entities":"alice","created_at":"2024-01-15T10:30:00"}]`)
	})
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"timestamp":"2024-01-15T10:29:00","user":"alice","action":"login","status":"success","device":null,"source_ip":"10.0.0.1"}]`)
	})
	mux.HandleFunc("/demo/datasets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"datasets":[{"filename":"a.json","name":"Demo A","event_count":50}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\ndashboard:\n  colorEnabled: false\n"), 0644))

	var out bytes.Buffer
	opts := &rootOptions{configPath: cfgPath, apiURL: srv.URL}
	err := runDashboard(context.Background(), opts, strings.NewReader("alerts\nlogs\ndatasets\nquit\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "IMPOSSIBLE_TRAVEL")
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, "Demo A (50 events)")
	assert.Contains(t, text, "10.0.0.1")
}

func TestConfigureColor(t *testing.T) {
	prev := color.NoColor
	defer func() { color.NoColor = prev }()

	color.NoColor = false
	configureColor(true)
	assert.False(t, color.NoColor, "enabled keeps terminal detection")

	configureColor(false)
	assert.True(t, color.NoColor)
}

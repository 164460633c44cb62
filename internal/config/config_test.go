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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ModeStatic, cfg.Source.Mode)
	assert.Equal(t, "public/data.json", cfg.Source.Path)
	assert.Equal(t, "last", cfg.Chart.DuplicatePolicy)
	assert.Equal(t, 300, cfg.Chart.Height)
	assert.Equal(t, "1h", cfg.Collector.Interval)
	assert.Equal(t, "7d", cfg.Collector.Range)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.GenerateCron)
	assert.Equal(t, 2*time.Second, cfg.Source.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
source:
  mode: api
  url: http://report.internal:8000
  timeout: 5s
chart:
  duplicate_policy: first
logging:
  level: debug
  format: json
`)
	t.Setenv("REPORT_SOURCE_URL", "http://override:9000")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, cfg.Source.Mode)
	assert.Equal(t, "http://override:9000", cfg.Source.URL)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "first", cfg.Chart.DuplicatePolicy)
	assert.Equal(t, "gem-key", cfg.Analysis.APIKey)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "source: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad mode", func(c *Config) { c.Source.Mode = "ftp" }},
		{"api without url", func(c *Config) { c.Source.Mode = ModeAPI; c.Source.URL = "" }},
		{"bad policy", func(c *Config) { c.Chart.DuplicatePolicy = "middle" }},
		{"telegram half set", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero width", func(c *Config) { c.Chart.Width = 0 }},
		{"bad background color", func(c *Config) { c.Chart.BackgroundColor = "not-a-color" }},
		{"bad line color", func(c *Config) { c.Chart.LineColor = "#12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_NoPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 13, cfg.Throttle.MinDays)
	assert.Equal(t, 30, cfg.Signal.StaleMinutes)
	assert.Equal(t, 2, cfg.Gaps.Threshold)
	assert.Equal(t, "file", cfg.State.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
throttle:
  min_days: 7
state:
  backend: redis
  redis_addr: localhost:6379
gaps:
  window_days: 30
  tables: ["analysis_runs"]
  threshold: 3
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Throttle.MinDays)
	assert.Equal(t, "redis", cfg.State.Backend)
	assert.Equal(t, 30, cfg.Gaps.WindowDays)
	assert.Equal(t, 3, cfg.Gaps.Threshold)
	// Untouched sections keep their defaults
	assert.Equal(t, 30, cfg.Signal.StaleMinutes)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad state backend", func(c *Config) { c.State.Backend = "dynamo" }},
		{"bad notify backend", func(c *Config) { c.Notify.Backend = "carrier-pigeon" }},
		{"webhook without url", func(c *Config) { c.Notify.Backend = "webhook"; c.Notify.WebhookURL = "" }},
		{"zero gap threshold", func(c *Config) { c.Gaps.Threshold = 0 }},
		{"no gap tables", func(c *Config) { c.Gaps.Tables = nil }},
		{"negative throttle", func(c *Config) { c.Throttle.MinDays = -1 }},
		{"zero stale minutes", func(c *Config) { c.Signal.StaleMinutes = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

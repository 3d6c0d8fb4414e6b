package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Tracker.Interval())
	assert.Equal(t, 10*time.Second, cfg.Tracker.QueryTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.API.TimeoutDuration())
	assert.True(t, cfg.Artifacts.Verify)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[api]
base_url = "http://base.local/api"
rate_limit = 2

[tracker]
poll_interval = "500ms"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[api]
base_url = "http://override.local/api"
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "http://override.local/api", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.API.RateLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Tracker.Interval())
	// Untouched sections keep defaults
	assert.Equal(t, "./reports", cfg.Artifacts.OutputDir)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[api\nbase_url ="), 0644))
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INVOICER_API_BASE_URL", "http://env.local/api")
	t.Setenv("INVOICER_POLL_INTERVAL", "250ms")
	t.Setenv("INVOICER_VERIFY_PDF", "false")
	t.Setenv("INVOICER_LOG_OUTPUT", "stdout, file")
	t.Setenv("INVOICER_BATCH_CONCURRENCY", "9")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "http://env.local/api", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracker.Interval())
	assert.False(t, cfg.Artifacts.Verify)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
	assert.Equal(t, 9, cfg.Batch.Concurrency)

	ApplyFlagOverrides(cfg, "http://flag.local/api", "debug")
	assert.Equal(t, "http://flag.local/api", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"no scheme", func(c *Config) { c.API.BaseURL = "localhost:8000/api" }, true},
		{"empty url", func(c *Config) { c.API.BaseURL = "" }, true},
		{"zero interval", func(c *Config) { c.Tracker.PollInterval = "0s" }, true},
		{"garbage interval", func(c *Config) { c.Tracker.PollInterval = "soon" }, true},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, DefaultPollInterval, TrackerConfig{PollInterval: ""}.Interval())
	assert.Equal(t, DefaultPollInterval, TrackerConfig{PollInterval: "nope"}.Interval())
	assert.Equal(t, DefaultPollInterval, TrackerConfig{PollInterval: "-1s"}.Interval())
	assert.Equal(t, 3*time.Second, TrackerConfig{PollInterval: "3s"}.Interval())
}

package common

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBaseURL      = "http://localhost:8000/api"
	DefaultPollInterval = 2 * time.Second
	DefaultQueryTimeout = 10 * time.Second
	DefaultAPITimeout   = 30 * time.Second
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	API         APIConfig       `toml:"api"`
	Tracker     TrackerConfig   `toml:"tracker"`
	Artifacts   ArtifactsConfig `toml:"artifacts"`
	Preview     PreviewConfig   `toml:"preview"`
	Logging     LoggingConfig   `toml:"logging"`
	Batch       BatchConfig     `toml:"batch"`
}

// APIConfig describes the remote invoice/render service
type APIConfig struct {
	BaseURL   string `toml:"base_url"`   // e.g. http://localhost:8000/api
	Timeout   string `toml:"timeout"`    // HTTP client timeout (duration string)
	RateLimit int    `toml:"rate_limit"` // Requests per second, burst equal
	UserAgent string `toml:"user_agent"`
}

// TrackerConfig controls job status polling
type TrackerConfig struct {
	PollInterval string `toml:"poll_interval"` // Delay between the end of one query and the next
	QueryTimeout string `toml:"query_timeout"` // Upper bound on a single status query
}

type ArtifactsConfig struct {
	OutputDir string `toml:"output_dir"` // Downloaded PDFs land here as report_<id>.pdf
	Verify    bool   `toml:"verify"`     // Parse downloaded PDFs before reporting success
}

type PreviewConfig struct {
	OutputDir string `toml:"output_dir"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "console", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
	FileName   string   `toml:"file_name"`   // used when output contains "file"
}

// BatchConfig bounds concurrent submissions when several documents are given
type BatchConfig struct {
	Concurrency int `toml:"concurrency"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultAPITimeout.String(),
			RateLimit: 5,
			UserAgent: "invoicer",
		},
		Tracker: TrackerConfig{
			PollInterval: DefaultPollInterval.String(),
			QueryTimeout: DefaultQueryTimeout.String(),
		},
		Artifacts: ArtifactsConfig{
			OutputDir: "./reports",
			Verify:    true,
		},
		Preview: PreviewConfig{
			OutputDir: "./previews",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			FileName:   "invoicer.log",
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies INVOICER_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INVOICER_ENV"); env != "" {
		config.Environment = env
	}

	// API
	if baseURL := os.Getenv("INVOICER_API_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("INVOICER_API_TIMEOUT"); timeout != "" {
		config.API.Timeout = timeout
	}
	if rateLimit := os.Getenv("INVOICER_API_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.API.RateLimit = rl
		}
	}

	// Tracker
	if pollInterval := os.Getenv("INVOICER_POLL_INTERVAL"); pollInterval != "" {
		config.Tracker.PollInterval = pollInterval
	}
	if queryTimeout := os.Getenv("INVOICER_QUERY_TIMEOUT"); queryTimeout != "" {
		config.Tracker.QueryTimeout = queryTimeout
	}

	// Artifacts
	if outputDir := os.Getenv("INVOICER_OUTPUT_DIR"); outputDir != "" {
		config.Artifacts.OutputDir = outputDir
	}
	if verify := os.Getenv("INVOICER_VERIFY_PDF"); verify != "" {
		if v, err := strconv.ParseBool(verify); err == nil {
			config.Artifacts.Verify = v
		}
	}

	// Logging
	if level := os.Getenv("INVOICER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("INVOICER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Batch
	if concurrency := os.Getenv("INVOICER_BATCH_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Batch.Concurrency = c
		}
	}
}

// ApplyFlagOverrides applies command line flag overrides (highest priority).
// Empty values leave the config untouched.
func ApplyFlagOverrides(config *Config, baseURL, logLevel string) {
	if baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate checks values that would otherwise fail late at request time
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url %q: %w", c.API.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: scheme and host are required", c.API.BaseURL)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative, got %d", c.API.RateLimit)
	}
	if d, err := time.ParseDuration(c.Tracker.PollInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid tracker.poll_interval %q", c.Tracker.PollInterval)
	}
	return nil
}

// Interval returns the parsed poll interval, falling back to the default
func (t TrackerConfig) Interval() time.Duration {
	return parseDuration(t.PollInterval, DefaultPollInterval)
}

// QueryTimeoutDuration returns the parsed query timeout, falling back to the default
func (t TrackerConfig) QueryTimeoutDuration() time.Duration {
	return parseDuration(t.QueryTimeout, DefaultQueryTimeout)
}

// TimeoutDuration returns the parsed HTTP timeout, falling back to the default
func (a APIConfig) TimeoutDuration() time.Duration {
	return parseDuration(a.Timeout, DefaultAPITimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

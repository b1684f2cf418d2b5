package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Auth        AuthConfig       `toml:"auth"`
	Importer    ImporterConfig   `toml:"importer"`
	Enrichment  EnrichmentConfig `toml:"enrichment"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// AuthConfig gates import starts and crawler control operations
type AuthConfig struct {
	APIKey string `toml:"api_key"` // Empty disables the authorization gate (development)
}

// ImporterConfig controls the import job coordinator
type ImporterConfig struct {
	ProgressCadence int `toml:"progress_cadence"` // Persist/emit progress every N items (default: 1)
}

// EnrichmentConfig contains Anthropic Claude configuration for the optional
// description rewrite step
type EnrichmentConfig struct {
	APIKey    string        `toml:"api_key"`    // Anthropic API key
	Model     string        `toml:"model"`      // Model name (default: "claude-haiku-4-5")
	MaxTokens int           `toml:"max_tokens"` // Maximum tokens in response (default: 1024)
	CallDelay time.Duration `toml:"call_delay"` // Fixed delay between completion calls (default: 2s)
	Timeout   time.Duration `toml:"timeout"`    // Per-call timeout (default: 1m)
}

// CrawlerConfig contains catalog crawler configuration
type CrawlerConfig struct {
	BaseURL        string        `toml:"base_url"`         // External reference API base URL
	BatchSize      int           `toml:"batch_size"`       // Ids per batch (default: 20)
	BatchesPerRun  int           `toml:"batches_per_run"`  // Batches per invocation (default: 5)
	RequestDelay   time.Duration `toml:"request_delay"`    // Courtesy delay between fetches (default: 3s)
	RequestTimeout time.Duration `toml:"request_timeout"`  // HTTP request timeout (default: 30s)
	MaxRetries     int           `toml:"max_retries"`      // Fetch retry attempts (default: 3)
	RetryDelay     time.Duration `toml:"retry_delay"`      // Base incremental retry delay (default: 2s)
	ProcessingWait time.Duration `toml:"processing_wait"`  // Fixed wait on HTTP 202 (default: 3s)
}

// SchedulerConfig controls the cron-driven crawler trigger
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron expression (default: "*/5 * * * *")
}

// WebSocketConfig contains configuration for progress event broadcasting
type WebSocketConfig struct {
	// ThrottleInterval limits how often progress frames for one job are
	// broadcast. Zero disables throttling.
	ThrottleInterval time.Duration `toml:"throttle_interval"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/meeple"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Importer: ImporterConfig{
			ProgressCadence: 1,
		},
		Enrichment: EnrichmentConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 1024,
			CallDelay: 2 * time.Second,
			Timeout:   time.Minute,
		},
		Crawler: CrawlerConfig{
			BaseURL:        "https://boardgamegeek.com/xmlapi2",
			BatchSize:      20,
			BatchesPerRun:  5,
			RequestDelay:   3 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			ProcessingWait: 3 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Schedule: "*/5 * * * *",
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: 0,
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies MEEPLE_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MEEPLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("MEEPLE_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("MEEPLE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("MEEPLE_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("MEEPLE_API_KEY"); v != "" {
		config.Auth.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Enrichment.APIKey = v
	}
	if v := os.Getenv("MEEPLE_CRAWLER_BASE_URL"); v != "" {
		config.Crawler.BaseURL = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if c.Crawler.BatchSize <= 0 {
		return fmt.Errorf("crawler.batch_size must be positive")
	}
	if c.Crawler.BatchesPerRun <= 0 {
		return fmt.Errorf("crawler.batches_per_run must be positive")
	}
	if c.Crawler.MaxRetries <= 0 {
		return fmt.Errorf("crawler.max_retries must be positive")
	}
	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule %q: %w", c.Scheduler.Schedule, err)
		}
	}
	if c.Importer.ProgressCadence <= 0 {
		c.Importer.ProgressCadence = 1
	}
	level := strings.ToLower(c.Logging.Level)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	return nil
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Analyzers   AnalyzersConfig `toml:"analyzers"`
	Jobs        JobsConfig      `toml:"jobs"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Attachments string `toml:"attachments" validate:"required"` // Directory for attachment blobs
}

// AnalyzersConfig contains configuration for analyzer discovery and execution
type AnalyzersConfig struct {
	DefinitionsDir string `toml:"definitions_dir"`                 // Directory containing analyzer definition files (TOML/YAML)
	Concurrency    int    `toml:"concurrency" validate:"gte=1"`    // Size of the analyzer worker pool (max simultaneous subprocesses)
	QueueSize      int    `toml:"queue_size" validate:"gte=1"`     // Pending-execution queue depth
	Timeout        string `toml:"timeout" validate:"omitempty"`    // Wall-clock timeout per analyzer run, e.g. "10m" ("0" = none)
}

// JobsConfig contains job lifecycle configuration
type JobsConfig struct {
	Cache         string `toml:"cache"`          // Similar-job cache window, e.g. "1h" ("0" disables the cache)
	StaleAfter    string `toml:"stale_after"`    // InProgress jobs older than this are failed as abandoned
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the stale-job sweep
}

// AuthConfig contains configuration for API-key authentication
type AuthConfig struct {
	UsersFile string `toml:"users_file"` // TOML file with user/API-key/organization records
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                                       // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in scrutor.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 9001,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/scrutor",
				ResetOnStartup: false,
			},
			Filesystem: FilesystemConfig{
				Attachments: "./data/attachments",
			},
		},
		Analyzers: AnalyzersConfig{
			DefinitionsDir: "./analyzers",
			Concurrency:    4,
			QueueSize:      256,
			Timeout:        "10m",
		},
		Jobs: JobsConfig{
			Cache:         "10m",
			StaleAfter:    "1h",
			SweepSchedule: "@every 5m",
		},
		Auth: AuthConfig{
			UsersFile: "./users.toml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints and duration fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Duration fields are kept as strings in TOML; fail fast on bad values
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.AnalyzerTimeout(); err != nil {
		return err
	}
	if _, err := c.StaleAfter(); err != nil {
		return err
	}
	return nil
}

// CacheTTL returns the similar-job cache window. Zero disables the cache.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDurationOption("jobs.cache", c.Jobs.Cache)
}

// AnalyzerTimeout returns the per-run wall-clock timeout. Zero means no timeout.
func (c *Config) AnalyzerTimeout() (time.Duration, error) {
	return parseDurationOption("analyzers.timeout", c.Analyzers.Timeout)
}

// StaleAfter returns the age after which an InProgress job is considered abandoned.
func (c *Config) StaleAfter() (time.Duration, error) {
	return parseDurationOption("jobs.stale_after", c.Jobs.StaleAfter)
}

func parseDurationOption(name, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration for %s: %s", name, value)
	}
	return d, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRUTOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SCRUTOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRUTOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("SCRUTOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if attachmentsDir := os.Getenv("SCRUTOR_ATTACHMENTS_DIR"); attachmentsDir != "" {
		config.Storage.Filesystem.Attachments = attachmentsDir
	}

	// Analyzer configuration
	if definitionsDir := os.Getenv("SCRUTOR_ANALYZERS_DIR"); definitionsDir != "" {
		config.Analyzers.DefinitionsDir = definitionsDir
	}
	if concurrency := os.Getenv("SCRUTOR_ANALYZERS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Analyzers.Concurrency = c
		}
	}
	if timeout := os.Getenv("SCRUTOR_ANALYZERS_TIMEOUT"); timeout != "" {
		config.Analyzers.Timeout = timeout
	}

	// Job configuration
	if cache := os.Getenv("SCRUTOR_JOB_CACHE"); cache != "" {
		config.Jobs.Cache = cache
	}
	if staleAfter := os.Getenv("SCRUTOR_JOB_STALE_AFTER"); staleAfter != "" {
		config.Jobs.StaleAfter = staleAfter
	}

	// Logging configuration
	if level := os.Getenv("SCRUTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

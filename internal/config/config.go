// Package config loads allot settings from ~/.allot/config.yaml and ALLOT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/batch"
	"github.com/fentz26/allot/internal/logging"
)

// EnvPrefix is the prefix for environment overrides, e.g. ALLOT_LISTEN.
const EnvPrefix = "ALLOT"

// Config holds daemon and CLI configuration.
type Config struct {
	Listen  string           `yaml:"listen"`
	DBPath  string           `yaml:"db_path"`
	Log     LogConfig        `yaml:"log"`
	Server  ServerConfig     `yaml:"server"`
	Tracing TracingConfig    `yaml:"tracing"`
	Batch   batch.Config     `yaml:"batch"`
	Engine  allocator.Config `yaml:"engine"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig bounds HTTP request handling.
type ServerConfig struct {
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
}

// TracingConfig toggles OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// File receives exported spans; empty means stdout.
	File string `yaml:"file"`
}

// Dir returns the allot home directory (~/.allot).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".allot"
	}
	return filepath.Join(home, ".allot")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: "127.0.0.1:7466",
		DBPath: filepath.Join(Dir(), "allot.db"),
		Log: LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatConsole,
		},
		Server: ServerConfig{
			RequestTimeout:  15 * time.Second,
			MaxRequestBytes: 1 << 20,
		},
		Batch:  *batch.DefaultConfig(),
		Engine: *allocator.DefaultConfig(),
	}
}

// Load reads the config file at path (DefaultPath when empty), applying
// environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
	} else {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("server.max_request_bytes", cfg.Server.MaxRequestBytes)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.file", cfg.Tracing.File)
	v.SetDefault("batch.workers", cfg.Batch.Workers)
	v.SetDefault("batch.max_jobs", cfg.Batch.MaxJobs)
	v.SetDefault("engine.cost_precision", cfg.Engine.CostPrecision)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.Listen = v.GetString("listen")
	cfg.DBPath = v.GetString("db_path")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Server.RequestTimeout = v.GetDuration("server.request_timeout")
	cfg.Server.MaxRequestBytes = v.GetInt64("server.max_request_bytes")
	cfg.Tracing.Enabled = v.GetBool("tracing.enabled")
	cfg.Tracing.File = v.GetString("tracing.file")
	cfg.Batch.Workers = v.GetInt("batch.workers")
	cfg.Batch.MaxJobs = v.GetInt("batch.max_jobs")
	cfg.Engine.CostPrecision = v.GetInt("engine.cost_precision")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("invalid log format %q, must be: json or console", c.Log.Format)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	if c.Server.MaxRequestBytes < 1024 {
		return fmt.Errorf("server.max_request_bytes must be at least 1024")
	}
	if err := c.Batch.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
}

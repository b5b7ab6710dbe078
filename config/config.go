package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/blockpress/store"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "BLOCKPRESS"

// ErrNotFound is returned by Load when an explicitly named file is missing.
var ErrNotFound = errors.New("config: file not found")

// Config is the blockpress service configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Database  store.Config    `mapstructure:"database" yaml:"database" json:"database"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache" json:"cache"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth" json:"auth"`
	Blocks    BlocksConfig    `mapstructure:"blocks" yaml:"blocks" json:"blocks"`

	// Source is the file the configuration was read from, if any.
	Source string `mapstructure:"-" yaml:"-" json:"-"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum level written: debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"required,oneof=debug info warn error"`
	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" yaml:"output" json:"output" validate:"required"`
}

// TelemetryConfig controls OpenTelemetry tracing and metrics.
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name" yaml:"service_name" json:"service_name" validate:"required"`
	Tracing     TracingConfig `mapstructure:"tracing" yaml:"tracing" json:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Exporter   string  `mapstructure:"exporter" yaml:"exporter" json:"exporter" validate:"omitempty,oneof=otlp jaeger stdout none"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig selects the metrics reader. The prometheus exporter is
// served on the HTTP server's /metrics route.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter" json:"exporter" validate:"omitempty,oneof=otlp prometheus stdout none"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string          `mapstructure:"addr" yaml:"addr" json:"addr" validate:"required"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64           `mapstructure:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes" validate:"gt=0"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Render          RenderConfig    `mapstructure:"render" yaml:"render" json:"render"`
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// Rate is the sustained requests per second allowed per client.
	Rate  float64 `mapstructure:"rate" yaml:"rate" json:"rate" validate:"gte=0"`
	Burst int     `mapstructure:"burst" yaml:"burst" json:"burst" validate:"gte=0"`
	// Idle is how long an unused client limiter is kept.
	Idle time.Duration `mapstructure:"idle" yaml:"idle" json:"idle" validate:"gte=0"`
}

// RenderConfig bounds render requests.
type RenderConfig struct {
	// MaxConcurrent caps renders in flight; excess requests get 503.
	MaxConcurrent int64         `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent" validate:"gte=1"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	// Interactivity enables directive processing on rendered documents.
	Interactivity bool `mapstructure:"interactivity" yaml:"interactivity" json:"interactivity"`
}

// CacheConfig selects the object cache backend.
type CacheConfig struct {
	// Backend is memory, badger or none.
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend" validate:"required,oneof=memory badger none"`
	// Path is the badger data directory. Empty keeps badger in memory.
	Path       string                   `mapstructure:"path" yaml:"path" json:"path"`
	DefaultTTL time.Duration            `mapstructure:"default_ttl" yaml:"default_ttl" json:"default_ttl" validate:"gte=0"`
	MaxTTL     time.Duration            `mapstructure:"max_ttl" yaml:"max_ttl" json:"max_ttl" validate:"gte=0"`
	GroupTTL   map[string]time.Duration `mapstructure:"group_ttl" yaml:"group_ttl,omitempty" json:"group_ttl,omitempty"`
}

// AuthConfig names the authenticators and authorizer built from the auth
// registry. Each Config map is handed to the named factory.
type AuthConfig struct {
	Authenticators []ProviderConfig `mapstructure:"authenticators" yaml:"authenticators" json:"authenticators" validate:"dive"`
	Authorizer     ProviderConfig   `mapstructure:"authorizer" yaml:"authorizer" json:"authorizer"`
	// SecretsDir is the base directory of secretref:file: references.
	SecretsDir string `mapstructure:"secrets_dir" yaml:"secrets_dir" json:"secrets_dir"`
}

// ProviderConfig is a named factory with its settings.
type ProviderConfig struct {
	Name   string         `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	Config map[string]any `mapstructure:"config" yaml:"config,omitempty" json:"config,omitempty"`
}

// BlocksConfig controls block type registration.
type BlocksConfig struct {
	// Core registers the built-in block library.
	Core bool `mapstructure:"core" yaml:"core" json:"core"`
	// Paths are directories holding a block.json each.
	Paths []string `mapstructure:"paths" yaml:"paths" json:"paths"`
}

// Load reads configuration from path (or the default location when path
// is empty), the environment and defaults, then validates it.
//
// A missing file at the default location is not an error; a missing
// explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setupViper(v, path); err != nil {
		return nil, err
	}

	source, err := readConfigFile(v, path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Source = source

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, path string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Environment overrides only apply to keys viper knows about.
	if err := setDefaults(v); err != nil {
		return err
	}

	if path != "" {
		v.SetConfigFile(path)
		return nil
	}
	v.AddConfigPath(Dir())
	v.SetConfigName("config")
	return nil
}

func readConfigFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("config: read: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// setDefaults registers every leaf of Default() with viper.
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: decode defaults: %w", err)
	}
	walkLeaves("", tree, v.SetDefault)
	return nil
}

func walkLeaves(prefix string, tree map[string]any, fn func(key string, value any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
			walkLeaves(key, sub, fn)
			continue
		}
		fn(key, val)
	}
}

// Save writes cfg as YAML to path, creating parent directories. The file
// is owner-only since it may carry credentials.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Dir returns $XDG_CONFIG_HOME/blockpress, falling back to
// ~/.config/blockpress and then the working directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blockpress")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "blockpress")
}

// DefaultPath is the file Load reads when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

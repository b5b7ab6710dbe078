package config

import (
	"strings"
	"time"

	"github.com/jonwraymond/blockpress/store"
)

// Default returns the configuration used when nothing else is set: an
// in-memory database and cache, the core block library, and the
// capability authorizer with no authenticators (every request anonymous).
func Default() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockpress",
			Tracing:     TracingConfig{Exporter: "none", SampleRate: 1},
			Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    4 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				Rate:    20,
				Burst:   40,
				Idle:    10 * time.Minute,
			},
			Render: RenderConfig{
				MaxConcurrent: 64,
				Timeout:       5 * time.Second,
				Interactivity: true,
			},
		},
		Database: store.Config{Path: store.MemoryPath},
		Cache: CacheConfig{
			Backend:    "memory",
			DefaultTTL: time.Hour,
			MaxTTL:     24 * time.Hour,
		},
		Auth: AuthConfig{
			Authenticators: []ProviderConfig{},
			Authorizer:     ProviderConfig{Name: "capabilities"},
		},
		Blocks: BlocksConfig{Core: true, Paths: []string{}},
	}
	cfg.Database.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields that an explicit file or the
// environment left empty, and normalises case-insensitive values.
func ApplyDefaults(cfg *Config) {
	def := Default()

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = def.Logging.Output
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if cfg.Telemetry.Tracing.Enabled && cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = "stdout"
	}
	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.Exporter == "" {
		cfg.Telemetry.Metrics.Exporter = def.Telemetry.Metrics.Exporter
	}

	applyServerDefaults(&cfg.Server, def.Server)

	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	cfg.Database.ApplyDefaults()

	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = def.Cache.Backend
	}

	if cfg.Auth.Authorizer.Name == "" {
		cfg.Auth.Authorizer.Name = def.Auth.Authorizer.Name
	}
}

func applyServerDefaults(s *ServerConfig, def ServerConfig) {
	if s.Addr == "" {
		s.Addr = def.Addr
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = def.ShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = def.MaxBodyBytes
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.Rate == 0 {
			s.RateLimit.Rate = def.RateLimit.Rate
		}
		if s.RateLimit.Burst == 0 {
			s.RateLimit.Burst = def.RateLimit.Burst
		}
	}
	if s.RateLimit.Idle == 0 {
		s.RateLimit.Idle = def.RateLimit.Idle
	}
	if s.Render.MaxConcurrent == 0 {
		s.Render.MaxConcurrent = def.Render.MaxConcurrent
	}
	if s.Render.Timeout == 0 {
		s.Render.Timeout = def.Render.Timeout
	}
}

package config

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/observe"
)

// Policy returns the object cache expiry policy. The "none" backend
// disables caching.
func (c CacheConfig) Policy() cache.Policy {
	if c.Backend == "none" {
		return cache.NoCachePolicy()
	}
	return cache.Policy{
		DefaultTTL: c.DefaultTTL,
		MaxTTL:     c.MaxTTL,
		GroupTTL:   c.GroupTTL,
	}
}

// Observe returns the observer configuration. Log entries go to w; reg
// receives the prometheus collector when that exporter is selected.
func (c *Config) Observe(version string, w io.Writer, reg prometheus.Registerer) observe.Config {
	return observe.Config{
		ServiceName: c.Telemetry.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing.Enabled,
			Exporter:  c.Telemetry.Tracing.Exporter,
			SamplePct: c.Telemetry.Tracing.SampleRate,
		},
		Metrics: observe.MetricsConfig{
			Enabled:    c.Telemetry.Metrics.Enabled,
			Exporter:   c.Telemetry.Metrics.Exporter,
			Registerer: reg,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Logging.Level,
			Writer:  w,
		},
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// OpenLogOutput opens the logging destination. Closing stdout or stderr
// is a no-op.
func OpenLogOutput(output string) (io.WriteCloser, error) {
	switch output {
	case "", "stderr":
		return nopCloser{os.Stderr}, nil
	case "stdout":
		return nopCloser{os.Stdout}, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("config: open log output: %w", err)
		}
		return f, nil
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/config"
	"github.com/jonwraymond/blockpress/store"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	def := config.Default()
	assert.Empty(t, cfg.Source)
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, def.Server.Render.Timeout, cfg.Server.Render.Timeout)
	assert.Equal(t, store.MemoryPath, cfg.Database.Path)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "capabilities", cfg.Auth.Authorizer.Name)
	assert.True(t, cfg.Blocks.Core)
}

func TestLoad_DefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blockpress"), 0o755))
	path := filepath.Join(dir, "blockpress", "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600))

	assert.Equal(t, path, config.DefaultPath())
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, config.ErrNotFound)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", `
logging:
  level: WARN
server:
  addr: "127.0.0.1:9000"
  read_timeout: 3s
  rate_limit:
    enabled: true
    rate: 5
    burst: 10
  render:
    max_concurrent: 8
    timeout: 750ms
database:
  path: /var/lib/blockpress/content.db
  busy_timeout: 2s
cache:
  backend: badger
  path: /var/cache/blockpress
  default_ttl: 10m
  max_ttl: 1h
  group_ttl:
    post-queries: 5m
auth:
  authenticators:
    - name: jwt
      config:
        issuer: blockpress
        secret: s3cret
  authorizer:
    name: capabilities
blocks:
  core: false
  paths:
    - ./blocks/notice
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5.0, cfg.Server.RateLimit.Rate)
	assert.Equal(t, int64(8), cfg.Server.Render.MaxConcurrent)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.Render.Timeout)
	assert.Equal(t, "/var/lib/blockpress/content.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GroupTTL["post-queries"])
	require.Len(t, cfg.Auth.Authenticators, 1)
	assert.Equal(t, "jwt", cfg.Auth.Authenticators[0].Name)
	assert.Equal(t, "s3cret", cfg.Auth.Authenticators[0].Config["secret"])
	assert.False(t, cfg.Blocks.Core)
	assert.Equal(t, []string{"./blocks/notice"}, cfg.Blocks.Paths)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, config.Default().Server.ShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "blockpress.toml", `
[server]
addr = ":8181"

[server.render]
timeout = "2s"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8181", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.Render.Timeout)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", "server:\n  addr: \":9000\"\n")
	t.Setenv("BLOCKPRESS_SERVER_ADDR", ":9100")
	t.Setenv("BLOCKPRESS_LOGGING_LEVEL", "DEBUG")
	t.Setenv("BLOCKPRESS_SERVER_RENDER_TIMEOUT", "250ms")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.Render.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", "logging:\n  level: verbose\n")
	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ":6060"
	cfg.Cache.GroupTTL = map[string]time.Duration{"posts": 30 * time.Second}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", loaded.Server.Addr)
	assert.Equal(t, 30*time.Second, loaded.Cache.GroupTTL["posts"])
	assert.Equal(t, cfg.Server.RateLimit, loaded.Server.RateLimit)
}

func TestCachePolicy(t *testing.T) {
	cfg := config.Default()
	p := cfg.Cache.Policy()
	assert.True(t, p.ShouldCache())
	assert.Equal(t, time.Hour, p.DefaultTTL)

	cfg.Cache.Backend = "none"
	assert.False(t, cfg.Cache.Policy().ShouldCache())
}

func TestObserveConfig(t *testing.T) {
	cfg := config.Default()
	oc := cfg.Observe("v1.2.3", os.Stderr, nil)
	require.NoError(t, oc.Validate())
	assert.Equal(t, "blockpress", oc.ServiceName)
	assert.Equal(t, "prometheus", oc.Metrics.Exporter)
	assert.Equal(t, "info", oc.Logging.Level)
}

func TestOpenLogOutput(t *testing.T) {
	w, err := config.OpenLogOutput("stderr")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "blockpress.log")
	w, err = config.OpenLogOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("entry\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "entry\n", string(data))
}

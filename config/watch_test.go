package config_test

import (
	"bytes"
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/config"
	"github.com/jonwraymond/blockpress/observe"
)

func TestNewWatcher_RequiresSource(t *testing.T) {
	_, err := config.NewWatcher(config.Default())
	require.ErrorIs(t, err, config.ErrNoSource)
}

func TestWatcher_ReloadAppliesLogLevel(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", "logging:\n  level: info\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter(cfg.Logging.Level, &buf)
	setter, ok := logger.(observe.LevelSetter)
	require.True(t, ok)

	w, err := config.NewWatcher(cfg)
	require.NoError(t, err)
	w.OnChange(config.LogLevelListener(setter))

	ctx := context.Background()
	logger.Debug(ctx, "hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	require.NoError(t, w.Reload(ctx))

	assert.Equal(t, "debug", w.Current().Logging.Level)
	logger.Debug(ctx, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", "server:\n  addr: \":9000\"\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	rec := observe.NewRecorder()
	w, err := config.NewWatcher(cfg, config.WithWatchLogger(rec))
	require.NoError(t, err)

	var calls atomic.Int32
	w.OnChange(func(context.Context, *config.Config) { calls.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: redis\n"), 0o600))
	require.ErrorIs(t, w.Reload(context.Background()), config.ErrInvalid)

	assert.Same(t, cfg, w.Current())
	assert.Zero(t, calls.Load())
	entries := rec.Entries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, observe.LevelError, last.Level)
	assert.Equal(t, "config reload failed", last.Msg)
}

func TestWatcher_RunFollowsWrites(t *testing.T) {
	path := writeFile(t, "blockpress.yaml", "server:\n  addr: \":9000\"\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	w, err := config.NewWatcher(cfg, config.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9200\"\n"), 0o600))

	require.Eventually(t, func() bool {
		return w.Current().Server.Addr == ":9200"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

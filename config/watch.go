package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/blockpress/observe"
)

// ErrNoSource is returned by NewWatcher for a configuration that was not
// read from a file.
var ErrNoSource = errors.New("config: configuration has no source file")

// Listener receives each successfully reloaded configuration.
type Listener func(ctx context.Context, cfg *Config)

// Watcher reloads a configuration file when it changes.
//
// Contract:
// - Concurrency: Current and OnChange are safe to call while running.
// - Errors: a reload that fails to load or validate keeps the previous
// configuration and is logged.
type Watcher struct {
	path     string
	logger   observe.Logger
	debounce time.Duration

	mu        sync.RWMutex
	current   *Config
	listeners []Listener
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger reload failures are reported to.
func WithWatchLogger(l observe.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher watches the file cfg was loaded from.
func NewWatcher(cfg *Config, opts ...WatchOption) (*Watcher, error) {
	if cfg == nil || cfg.Source == "" {
		return nil, ErrNoSource
	}
	w := &Watcher{
		path:     cfg.Source,
		logger:   observe.NoopLogger(),
		debounce: 100 * time.Millisecond,
		current:  cfg,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange adds a listener called after every successful reload.
func (w *Watcher) OnChange(fn Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Run watches until ctx is done. The directory is watched rather than the
// file so editors that replace the file on save are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(w.path), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.Reload(ctx) })
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "config watch error", observe.Field{Key: "error", Value: err.Error()})
		}
	}
}

// Reload reads the file again and notifies listeners when it is valid.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error(ctx, "config reload failed",
			observe.Field{Key: "path", Value: w.path},
			observe.Field{Key: "error", Value: err.Error()})
		return err
	}

	w.mu.Lock()
	w.current = cfg
	listeners := make([]Listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info(ctx, "config reloaded", observe.Field{Key: "path", Value: w.path})
	for _, fn := range listeners {
		fn(ctx, cfg)
	}
	return nil
}

// LogLevelListener applies the reloaded logging level to setter.
func LogLevelListener(setter observe.LevelSetter) Listener {
	return func(_ context.Context, cfg *Config) {
		setter.SetLevel(cfg.Logging.Level)
	}
}

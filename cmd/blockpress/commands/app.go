package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/cache/badgercache"
	"github.com/jonwraymond/blockpress/config"
	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/library"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/render"
	"github.com/jonwraymond/blockpress/store"
	"github.com/jonwraymond/blockpress/supports"
)

// app holds the services shared by the commands, built from one
// configuration.
type app struct {
	cfg      *config.Config
	observer observe.Observer
	logger   observe.Logger
	mw       *observe.Middleware
	metrics  http.Handler

	events   *hooks.Registry
	store    *store.Store
	cache    *cache.ObjectCache
	posts    *query.Posts
	registry *blocktype.Registry
	features *supports.Features
	render   *render.Hooks

	closers []func() error
}

// newApp wires logging, telemetry, storage, the query layer and the block
// registry. Close releases everything newApp opened.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg, features: supports.New(), render: &render.Hooks{}}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	logOut, err := config.OpenLogOutput(cfg.Logging.Output)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, logOut.Close)

	promReg := prometheus.NewRegistry()
	a.observer, err = observe.NewObserver(ctx, cfg.Observe(Version, logOut, promReg))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.observer.Shutdown(context.WithoutCancel(ctx)) })
	a.logger = a.observer.Logger()
	if a.mw, err = observe.MiddlewareFromObserver(a.observer); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.Exporter == "prometheus" {
		a.metrics = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	a.events = hooks.NewRegistry()
	a.store, err = store.Open(ctx, cfg.Database, store.WithHooks(a.events), store.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	backend, err := a.openCacheBackend()
	if err != nil {
		return nil, err
	}
	a.cache = cache.NewObjectCache(backend, cfg.Cache.Policy())
	query.NewInvalidator(a.cache, a.logger).Subscribe(a.events)

	a.posts = query.NewPosts(a.store, a.cache,
		query.WithExecutor(query.DefaultExecutor()),
		query.WithMiddleware(a.mw),
		query.WithLogger(a.logger),
	)

	a.registry = blocktype.NewRegistry(
		blocktype.WithLogger(a.logger),
		blocktype.WithAttributeRegistrar(supports.RegisterAttributes),
	)
	if err := a.loadBlocks(); err != nil {
		return nil, err
	}

	a.logger.Debug(ctx, "application ready",
		observe.Field{Key: "config", Value: cfg.Source},
		observe.Field{Key: "cache", Value: cfg.Cache.Backend},
		observe.Field{Key: "block_types", Value: len(a.registry.Names())},
	)
	return a, nil
}

// openCacheBackend returns nil for the in-process memory backend.
func (a *app) openCacheBackend() (cache.Cache, error) {
	if a.cfg.Cache.Backend != "badger" {
		return nil, nil
	}
	opts := badgercache.Options{Dir: a.cfg.Cache.Path, Logger: a.logger}
	if opts.Dir == "" {
		opts.InMemory = true
	}
	bc, err := badgercache.Open(opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, bc.Close)
	return bc, nil
}

// loadBlocks registers the built-in library and every configured block
// directory. A directory either holds a block.json itself or one block
// per subdirectory.
func (a *app) loadBlocks() error {
	if a.cfg.Blocks.Core {
		if err := library.Register(a.registry, library.Deps{Posts: a.posts, Logger: a.logger}); err != nil {
			return err
		}
	}
	for _, dir := range a.cfg.Blocks.Paths {
		if err := registerBlockDir(a.registry, os.DirFS(dir)); err != nil {
			return fmt.Errorf("blocks: %s: %w", dir, err)
		}
	}
	return nil
}

func registerBlockDir(reg *blocktype.Registry, fsys fs.FS) error {
	if _, err := fs.Stat(fsys, blocktype.MetadataFile); err == nil {
		_, err := reg.RegisterFromMetadata(fsys, ".")
		return err
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}
	found := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(fsys, path.Join(e.Name(), blocktype.MetadataFile)); err != nil {
			continue
		}
		if _, err := reg.RegisterFromMetadata(fsys, e.Name()); err != nil {
			return err
		}
		found++
	}
	if found == 0 {
		return fmt.Errorf("no %s found", blocktype.MetadataFile)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/blockpress/auth"
	"github.com/jonwraymond/blockpress/config"
	"github.com/jonwraymond/blockpress/health"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/server"
	"github.com/jonwraymond/blockpress/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the blockpress HTTP server with the specified configuration.

The server runs in the foreground until interrupted. Editing the
configuration file while the server runs re-applies the log level.

Examples:
  # Start with the default config location
  blockpress serve

  # Start with a custom config file and address
  blockpress serve --config /etc/blockpress/config.yaml --addr :9090

  # Start with environment variable overrides
  BLOCKPRESS_LOGGING_LEVEL=debug blockpress serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.ResolveSecrets(ctx, cfg, nil); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.logger.Error(context.Background(), "shutdown error", observe.Field{Key: "error", Value: err.Error()})
		}
	}()

	authn, authz, err := buildAuth(cfg.Auth, a.store)
	if err != nil {
		return err
	}

	agg := health.NewAggregator(health.WithLogger(a.logger))
	agg.Register("database", health.NewDatabaseChecker(a.store))
	agg.Register("cache", health.NewCacheChecker(a.cache))
	agg.Register("block_types", health.NewBlockTypesChecker(a.registry))

	srv, err := server.New(cfg.Server, server.Deps{
		Registry:      a.registry,
		Features:      a.features,
		RenderHooks:   a.render,
		Store:         a.store,
		Posts:         a.posts,
		Authenticator: authn,
		Authorizer:    authz,
		Health:        agg,
		Middleware:    a.mw,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "blockpress starting",
		observe.Field{Key: "version", Value: Version},
		observe.Field{Key: "addr", Value: cfg.Server.Addr},
		observe.Field{Key: "config", Value: configSource(cfg)},
		observe.Field{Key: "block_types", Value: len(a.registry.Names())},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.Source != "" {
		w, err := config.NewWatcher(cfg, config.WithWatchLogger(a.logger))
		if err != nil {
			return err
		}
		if setter, ok := a.logger.(observe.LevelSetter); ok {
			w.OnChange(config.LogLevelListener(setter))
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	a.logger.Info(context.Background(), "blockpress stopped")
	return nil
}

// buildAuth creates the configured authenticators and authorizer. With
// no authenticators every request is anonymous.
func buildAuth(cfg config.AuthConfig, st *store.Store) (auth.Authenticator, auth.Authorizer, error) {
	deps := auth.FactoryDeps{Posts: server.PostLookup(st)}

	var authns []auth.Authenticator
	for _, p := range cfg.Authenticators {
		a, err := auth.DefaultRegistry.CreateAuthenticator(p.Name, p.Config, deps)
		if err != nil {
			return nil, nil, fmt.Errorf("auth: %s: %w", p.Name, err)
		}
		authns = append(authns, a)
	}

	authz, err := auth.DefaultRegistry.CreateAuthorizer(cfg.Authorizer.Name, cfg.Authorizer.Config, deps)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: authorizer %s: %w", cfg.Authorizer.Name, err)
	}

	if len(authns) == 0 {
		return nil, authz, nil
	}
	return auth.NewCompositeAuthenticator(authns...), authz, nil
}

func configSource(cfg *config.Config) string {
	if cfg.Source == "" {
		return "defaults and environment"
	}
	return cfg.Source
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/blockpress/auth"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/config"
	"github.com/jonwraymond/blockpress/health"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/render"
	"github.com/jonwraymond/blockpress/resilience"
	"github.com/jonwraymond/blockpress/store"
	"github.com/jonwraymond/blockpress/supports"
)

// Deps are the services the server routes to. Registry is required; the
// post routes answer 503 without Store and Posts.
type Deps struct {
	Registry    *blocktype.Registry
	Features    *supports.Features
	RenderHooks *render.Hooks

	Store *store.Store
	Posts *query.Posts

	// Authenticator may be nil, in which case every request is anonymous.
	Authenticator auth.Authenticator
	// Authorizer defaults to a capability authorizer over Store.
	Authorizer auth.Authorizer

	Health     *health.Aggregator
	Middleware *observe.Middleware
	Logger     observe.Logger

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Server is the blockpress HTTP service.
//
// Contract:
// - Concurrency: Handler is safe for concurrent use.
// - Context: Run stops when its context is done.
type Server struct {
	cfg     config.ServerConfig
	deps    Deps
	logger  observe.Logger
	exec    *resilience.Executor
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, errors.New("server: block type registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = observe.NoopLogger()
	}
	if deps.Middleware == nil {
		deps.Middleware = observe.NoopMiddleware()
	}
	if deps.Features == nil {
		deps.Features = supports.New()
	}
	if deps.RenderHooks == nil {
		deps.RenderHooks = &render.Hooks{}
	}
	if deps.Authorizer == nil {
		var lookup auth.PostLookup
		if deps.Store != nil {
			lookup = PostLookup(deps.Store)
		}
		deps.Authorizer = auth.NewCapabilityAuthorizer(nil, lookup)
	}
	if deps.Health == nil {
		deps.Health = health.NewAggregator(health.WithLogger(deps.Logger))
	}

	guards := []resilience.ExecutorOption{
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: int(cfg.Render.MaxConcurrent),
		})),
	}
	if cfg.Render.Timeout > 0 {
		guards = append(guards, resilience.WithTimeout(cfg.Render.Timeout))
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		exec:   resilience.NewExecutor(guards...),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	health.Mount(r, s.deps.Health)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
				Rate:  s.cfg.RateLimit.Rate,
				Burst: s.cfg.RateLimit.Burst,
			})
			if s.cfg.RateLimit.Idle > 0 {
				limiter.Idle = s.cfg.RateLimit.Idle
			}
			r.Use(resilience.Middleware(limiter, nil))
		}
		r.Use(limitBody(s.cfg.MaxBodyBytes))
		r.Use(auth.Middleware(s.deps.Authenticator, s.logger))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/render", s.handleRender)
			r.Post("/parse", s.handleParse)
		})

		r.Route("/wp/v2", func(r chi.Router) {
			r.Get("/block-types", s.handleBlockTypes)
			r.Get("/block-types/{namespace}", s.handleBlockTypes)
			r.Get("/block-types/{namespace}/{name}", s.handleBlockType)

			r.With(auth.RequireCapability(s.deps.Authorizer, "edit_posts", nil)).
				Post("/block-renderer/{namespace}/{name}", s.handleBlockRenderer)

			r.Get("/posts", s.handleListPosts)
			r.Get("/posts/{id}", s.handleGetPost)
			r.With(auth.RequireCapability(s.deps.Authorizer, "publish_posts", nil)).
				Post("/posts", s.handleCreatePost)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "rest_no_route", "No route was found matching the URL and request method.")
	})
	return r
}

// Run serves on the configured address until ctx is done, then shuts down
// within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Addr returns the address the server is listening on, or "" before
// Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

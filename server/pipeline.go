package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/interactivity"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/render"
	"github.com/jonwraymond/blockpress/resilience"
)

// pipeline is the per-request render state. The interactivity store
// collects state and config seeded by the blocks of one document only.
type pipeline struct {
	ctx      context.Context
	renderer *render.Renderer
	state    *interactivity.Store
}

func (s *Server) newPipeline(ctx context.Context) *pipeline {
	state := interactivity.NewStore(s.logger)
	opts := []render.Option{
		render.WithHooks(s.deps.RenderHooks),
		render.WithFeatures(s.deps.Features),
		render.WithMiddleware(s.deps.Middleware),
		render.WithLogger(s.logger),
	}
	if s.cfg.Render.Interactivity {
		opts = append(opts, render.WithInteractivity(interactivity.NewProcessor(state, s.logger)))
	}
	return &pipeline{
		ctx:      interactivity.WithStore(ctx, state),
		renderer: render.New(s.deps.Registry, opts...),
		state:    state,
	}
}

// document appends the client data script to a rendered document.
func (p *pipeline) document(html string) (string, error) {
	script, err := p.state.ClientDataScript()
	if err != nil {
		return "", err
	}
	return html + script, nil
}

// renderContent renders a full document under the render bulkhead and
// timeout.
func (s *Server) renderContent(ctx context.Context, content string) (string, error) {
	var out string
	err := s.exec.Execute(ctx, func(ctx context.Context) error {
		p := s.newPipeline(ctx)
		html, err := p.renderer.RenderContent(p.ctx, content)
		if err != nil {
			return err
		}
		out, err = p.document(html)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// renderBlock renders a single block as a standalone document: directives
// are applied and the client data script is appended.
func (s *Server) renderBlock(ctx context.Context, n *block.Node) (string, error) {
	var out string
	err := s.exec.Execute(ctx, func(ctx context.Context) error {
		p := s.newPipeline(ctx)
		html, err := p.renderer.RenderBlock(p.ctx, n, nil)
		if err != nil {
			return err
		}
		if proc := p.renderer.Interactivity(); proc != nil {
			html = proc.Process(p.ctx, html)
		}
		out, err = p.document(html)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// writeRenderError maps render failures to responses.
func (s *Server) writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resilience.ErrBulkheadFull):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "render_busy", "Too many renders in progress.")
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "render_timeout", "Rendering took too long.")
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		s.logger.Error(r.Context(), "render failed", observe.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "render_failed", "Rendering failed.")
	}
}

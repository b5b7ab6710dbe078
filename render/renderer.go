package render

import (
	"context"
	"strings"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/interactivity"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/supports"
)

const noticeFunction = "Renderer.RenderBlock"

// Renderer renders block content.
//
// Contract:
// - Concurrency: safe for concurrent use when its collaborators are.
// - Errors: only context errors are returned.
type Renderer struct {
	registry  *blocktype.Registry
	hooks     *Hooks
	features  *supports.Features
	processor *interactivity.Processor
	mw        *observe.Middleware
	logger    observe.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHooks sets the render hooks.
func WithHooks(h *Hooks) Option {
	return func(r *Renderer) {
		if h != nil {
			r.hooks = h
		}
	}
}

// WithFeatures sets the supports features used for wrapper attributes.
func WithFeatures(f *supports.Features) Option {
	return func(r *Renderer) {
		if f != nil {
			r.features = f
		}
	}
}

// WithInteractivity enables directive processing of rendered documents.
func WithInteractivity(p *interactivity.Processor) Option {
	return func(r *Renderer) { r.processor = p }
}

// WithMiddleware sets the telemetry middleware wrapping dynamic renders.
// Its logger also receives developer notices unless WithLogger is given.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(r *Renderer) {
		if mw != nil {
			r.mw = mw
		}
	}
}

// WithLogger sets the logger receiving developer notices.
func WithLogger(l observe.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Renderer over registry.
func New(registry *blocktype.Registry, opts ...Option) *Renderer {
	r := &Renderer{
		registry: registry,
		hooks:    &Hooks{},
		features: supports.New(),
		mw:       observe.NoopMiddleware(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = blocktype.NewRegistry()
	}
	if r.logger == nil {
		r.logger = r.mw.Logger()
	}
	return r
}

// Hooks returns the renderer's hooks for registering callbacks.
func (r *Renderer) Hooks() *Hooks { return r.hooks }

// Registry returns the block type registry.
func (r *Renderer) Registry() *blocktype.Registry { return r.registry }

// Interactivity returns the directive processor, or nil.
func (r *Renderer) Interactivity() *interactivity.Processor { return r.processor }

// RenderContent parses content and renders every block in it, then
// applies interactivity directives when enabled.
func (r *Renderer) RenderContent(ctx context.Context, content string) (string, error) {
	out, err := r.RenderNodes(ctx, block.Parse(content))
	if err != nil {
		return "", err
	}
	if r.processor != nil {
		out = r.processor.Process(ctx, out)
	}
	return out, nil
}

// RenderNodes renders top-level nodes in order, without directive
// processing.
func (r *Renderer) RenderNodes(ctx context.Context, nodes []*block.Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		out, err := r.RenderNode(ctx, n)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// RenderNode renders a top-level node.
func (r *Renderer) RenderNode(ctx context.Context, n *block.Node) (string, error) {
	out, _, err := r.render(ctx, n, nil, nil)
	return out, err
}

// RenderBlock renders n with the given context available to it.
func (r *Renderer) RenderBlock(ctx context.Context, n *block.Node, available map[string]attr.Value) (string, error) {
	out, _, err := r.render(ctx, n, nil, available)
	return out, err
}

// render returns the block's output and its instance, which is nil for
// freeform and short-circuited nodes.
func (r *Renderer) render(ctx context.Context, n *block.Node, parent *Block, available map[string]attr.Value) (string, *Block, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if n == nil {
		return "", nil, nil
	}
	if n.IsFreeform() {
		return n.HTML(), nil, nil
	}

	pre := r.hooks.PreRenderBlock.Apply(ctx, PreRender{Node: n, Parent: parent})
	if pre.Output != nil {
		return *pre.Output, nil, nil
	}

	data := r.hooks.RenderBlockData.Apply(ctx, BlockData{Node: n, Source: n, Parent: parent})
	if data.Node != nil {
		n = data.Node
	}

	b := r.NewBlock(ctx, n, parent, available)

	var (
		content  strings.Builder
		innerErr error
	)
	childCtx := b.childContext()
	block.WriteInnerContent(&content, n, func(child *block.Node) string {
		if innerErr != nil {
			return ""
		}
		out, inner, err := r.render(ctx, child, b, childCtx)
		if err != nil {
			innerErr = err
			return ""
		}
		if inner != nil {
			b.InnerBlocks = append(b.InnerBlocks, inner)
		}
		return out
	})
	if innerErr != nil {
		return "", nil, innerErr
	}

	out := content.String()
	if b.Type != nil && b.Type.IsDynamic() {
		out = r.callback(ctx, b, out)
	}

	final := r.hooks.RenderBlock.Apply(ctx, Output{HTML: out, Block: b})
	return final.HTML, b, nil
}

// NewBlock builds the instance for n: looks up its type, prepares its
// attributes and resolves its context. InnerBlocks are filled in as the
// children render.
func (r *Renderer) NewBlock(ctx context.Context, n *block.Node, parent *Block, available map[string]attr.Value) *Block {
	b := &Block{
		Name:             n.Name,
		Parsed:           n,
		Parent:           parent,
		AvailableContext: available,
		Context:          map[string]attr.Value{},
		renderer:         r,
	}

	b.Type = r.registry.Get(n.Name)
	if b.Type == nil {
		b.Attributes = n.Attrs.Clone()
	} else {
		prepared := b.Type.PrepareAttributes(n.Attrs)
		b.Attributes = prepared.Attributes
		b.Issues = prepared.Issues
		if !prepared.OK() {
			for _, issue := range prepared.Issues {
				r.logger.Debug(ctx, "block attribute adjusted",
					observe.Field{Key: "block", Value: n.Name},
					observe.Field{Key: "issue", Value: issue.String()})
			}
		}
		for _, name := range b.Type.UsesContext {
			if v, ok := available[name]; ok {
				b.Context[name] = v
			}
		}
	}

	return b
}

// callback runs the dynamic render callback under the telemetry
// middleware. Errors are reported and render as empty output.
func (r *Renderer) callback(ctx context.Context, b *Block, content string) string {
	meta := observe.BlockMeta{Name: b.Name, Dynamic: true, Category: b.Type.Category}
	fn := r.mw.Wrap(func(ctx context.Context, _ observe.BlockMeta) (string, error) {
		return b.Type.RenderCallback(ctx, b.Attributes, content, b)
	})

	out, err := fn(ctx, meta)
	if err != nil {
		observe.DoingItWrong(ctx, r.logger, noticeFunction, "render callback failed: "+err.Error(),
			observe.Field{Key: "block", Value: b.Name})
		return ""
	}
	return out
}

package render

import (
	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/blocktype"
)

// Block is a block being rendered. It is the blocktype.Instance passed to
// render callbacks.
type Block struct {
	Name string

	// Attributes are the prepared attributes, or the raw ones for blocks
	// without a registered type.
	Attributes *attr.Object
	Issues     []blocktype.ValidationIssue

	Parsed      *block.Node
	Type        *blocktype.Definition
	Parent      *Block
	InnerBlocks []*Block // rendered children, in document order

	// Context holds the values of the type's UsesContext names found in
	// AvailableContext.
	Context          map[string]attr.Value
	AvailableContext map[string]attr.Value

	renderer *Renderer
}

// BlockName returns the block's name.
func (b *Block) BlockName() string { return b.Name }

// ContextValue returns a context value the block type uses.
func (b *Block) ContextValue(name string) (attr.Value, bool) {
	v, ok := b.Context[name]
	return v, ok
}

// WrapperAttributes returns the wrapper attribute string for the block,
// merging supports classes and styles into extra.
func (b *Block) WrapperAttributes(extra map[string]string) string {
	if b.Type == nil || b.renderer == nil {
		return ""
	}
	return b.renderer.features.WrapperAttributes(b.Type, b.Attributes, extra)
}

// childContext returns the context available to the block's children.
func (b *Block) childContext() map[string]attr.Value {
	if b.Type == nil || len(b.Type.ProvidesContext) == 0 {
		return b.AvailableContext
	}
	out := make(map[string]attr.Value, len(b.AvailableContext)+len(b.Type.ProvidesContext))
	for k, v := range b.AvailableContext {
		out[k] = v
	}
	for name, attrName := range b.Type.ProvidesContext {
		if v, ok := b.Attributes.Get(attrName); ok {
			out[name] = v
		}
	}
	return out
}

var _ blocktype.Instance = (*Block)(nil)

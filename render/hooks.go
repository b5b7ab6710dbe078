package render

import (
	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/hooks"
)

// PreRender is the value passed through Hooks.PreRenderBlock. A filter
// that sets Output short-circuits the block.
type PreRender struct {
	Node   *block.Node
	Parent *Block
	Output *string
}

// BlockData is the value passed through Hooks.RenderBlockData. Filters
// may replace Node; Source is the node as parsed.
type BlockData struct {
	Node   *block.Node
	Source *block.Node
	Parent *Block
}

// Output is the value passed through Hooks.RenderBlock.
type Output struct {
	HTML  string
	Block *Block
}

// Hooks are the render extension points. The zero value has no callbacks.
type Hooks struct {
	PreRenderBlock  hooks.Filter[PreRender]
	RenderBlockData hooks.Filter[BlockData]
	RenderBlock     hooks.Filter[Output]
}

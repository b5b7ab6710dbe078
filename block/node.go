package block

import (
	"strings"

	"github.com/jonwraymond/blockpress/attr"
)

// Chunk is one entry of a node's inner content: either literal HTML or a
// placeholder for the next inner block.
type Chunk struct {
	HTML  string
	Block bool
}

// Node is a parsed block. A node with an empty Name is freeform HTML.
type Node struct {
	// Name is the canonical namespace/name of the block.
	Name string

	// Attrs holds the delimiter attributes in the order they were written.
	// It is never nil for nodes produced by Parse.
	Attrs *attr.Object

	InnerBlocks []*Node

	// InnerHTML holds the HTML chunks of InnerContent, without placeholders.
	InnerHTML []string

	// InnerContent interleaves HTML chunks and inner block placeholders in
	// document order. Exactly one placeholder exists per InnerBlocks entry.
	InnerContent []Chunk

	// ImplicitNamespace is set when the delimiter used a bare slug and the
	// core namespace was inferred.
	ImplicitNamespace bool
}

// NewFreeform returns a freeform node holding html.
func NewFreeform(html string) *Node {
	return &Node{
		Attrs:        attr.NewObject(),
		InnerHTML:    []string{html},
		InnerContent: []Chunk{{HTML: html}},
	}
}

// New returns a block node. Inner content is built from inner: string
// elements become HTML chunks and *Node elements become inner blocks.
func New(name string, attrs *attr.Object, inner ...any) *Node {
	if attrs == nil {
		attrs = attr.NewObject()
	}
	n := &Node{
		Name:              CanonicalName(name),
		Attrs:             attrs,
		ImplicitNamespace: !strings.Contains(name, "/"),
	}
	for _, part := range inner {
		switch p := part.(type) {
		case string:
			n.appendHTML(p)
		case *Node:
			n.appendBlock(p)
		}
	}
	return n
}

// IsFreeform reports whether n is a freeform HTML node.
func (n *Node) IsFreeform() bool { return n.Name == "" }

// HTML returns the node's own HTML with inner blocks left out.
func (n *Node) HTML() string {
	return strings.Join(n.InnerHTML, "")
}

func (n *Node) appendHTML(html string) {
	if html == "" {
		return
	}
	n.InnerHTML = append(n.InnerHTML, html)
	n.InnerContent = append(n.InnerContent, Chunk{HTML: html})
}

func (n *Node) appendBlock(child *Node) {
	n.InnerBlocks = append(n.InnerBlocks, child)
	n.InnerContent = append(n.InnerContent, Chunk{Block: true})
}

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the node's inner blocks.
func Walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if fn(n) {
			Walk(n.InnerBlocks, fn)
		}
	}
}

package block

import (
	"strings"

	"github.com/jonwraymond/blockpress/attr"
)

// Serialize reconstructs delimited content from nodes.
func Serialize(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n)
	}
	return b.String()
}

// SerializeNode reconstructs the delimited content of a single node.
func SerializeNode(n *Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.IsFreeform() {
		b.WriteString(n.HTML())
		return
	}

	name := n.Name
	if n.ImplicitNamespace {
		name = StripCoreNamespace(name)
	}

	b.WriteString(commentOpen + " " + delimPrefix + name + " ")
	if n.Attrs.Len() > 0 {
		b.WriteString(attr.MarshalObject(n.Attrs))
		b.WriteByte(' ')
	}
	if len(n.InnerContent) == 0 {
		b.WriteString(voidClose)
		return
	}
	b.WriteString(commentClose)

	WriteInnerContent(b, n, func(child *Node) string { return SerializeNode(child) })

	b.WriteString(commentOpen + " /" + delimPrefix + name + " " + commentClose)
}

// WriteInnerContent writes n's inner content to b, replacing each block
// placeholder with the output of fn for the matching inner block.
func WriteInnerContent(b *strings.Builder, n *Node, fn func(child *Node) string) {
	next := 0
	for _, chunk := range n.InnerContent {
		if !chunk.Block {
			b.WriteString(chunk.HTML)
			continue
		}
		if next < len(n.InnerBlocks) {
			b.WriteString(fn(n.InnerBlocks[next]))
		}
		next++
	}
}

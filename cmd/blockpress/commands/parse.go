package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
)

var (
	parseSerialize bool
	parseJSON      bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse block content",
	Long: `Parse block content from a file or stdin and print its blocks.

Examples:
  # Print the block outline of a post
  blockpress parse post.html

  # Print the full parse tree as JSON
  blockpress parse --json < post.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the parse tree as JSON")
	parseCmd.Flags().BoolVar(&parseSerialize, "serialize", false, "Print the content serialized back from the parse tree")
}

// parsedNode is the JSON form of a parsed block.
type parsedNode struct {
	BlockName    *string      `json:"blockName"`
	Attrs        *attr.Object `json:"attrs"`
	InnerBlocks  []parsedNode `json:"innerBlocks"`
	InnerHTML    string       `json:"innerHTML"`
	InnerContent []*string    `json:"innerContent"`
}

func toParsedNode(n *block.Node) parsedNode {
	out := parsedNode{
		Attrs:        n.Attrs,
		InnerBlocks:  []parsedNode{},
		InnerHTML:    n.HTML(),
		InnerContent: []*string{},
	}
	if !n.IsFreeform() {
		name := n.Name
		out.BlockName = &name
	}
	for _, child := range n.InnerBlocks {
		out.InnerBlocks = append(out.InnerBlocks, toParsedNode(child))
	}
	for _, c := range n.InnerContent {
		if c.Block {
			out.InnerContent = append(out.InnerContent, nil)
			continue
		}
		html := c.HTML
		out.InnerContent = append(out.InnerContent, &html)
	}
	return out
}

func runParse(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	nodes := block.Parse(content)
	w := cmd.OutOrStdout()

	switch {
	case parseJSON:
		out := make([]parsedNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, toParsedNode(n))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case parseSerialize:
		_, err := fmt.Fprint(w, block.Serialize(nodes))
		return err
	}

	var b strings.Builder
	writeOutline(&b, nodes, 0)
	_, err = fmt.Fprint(w, b.String())
	return err
}

// writeOutline prints one line per block, indented by depth.
func writeOutline(b *strings.Builder, nodes []*block.Node, depth int) {
	for _, n := range nodes {
		b.WriteString(strings.Repeat("  ", depth))
		if n.IsFreeform() {
			if strings.TrimSpace(n.HTML()) == "" {
				b.WriteString("(whitespace)\n")
			} else {
				fmt.Fprintf(b, "(freeform, %d bytes)\n", len(n.HTML()))
			}
			continue
		}
		b.WriteString(n.Name)
		if n.Attrs.Len() > 0 {
			b.WriteByte(' ')
			b.WriteString(attr.MarshalObject(n.Attrs))
		}
		b.WriteByte('\n')
		writeOutline(b, n.InnerBlocks, depth+1)
	}
}

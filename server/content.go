package server

import (
	"net/http"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
)

type contentRequest struct {
	Content string `json:"content"`
}

type renderResponse struct {
	HTML string `json:"html"`
}

// nodeJSON is the parse tree shape used by the block editor: freeform
// nodes have a null blockName and inner block positions in innerContent
// are null.
type nodeJSON struct {
	BlockName    *string      `json:"blockName"`
	Attrs        *attr.Object `json:"attrs"`
	InnerBlocks  []nodeJSON   `json:"innerBlocks"`
	InnerHTML    string       `json:"innerHTML"`
	InnerContent []*string    `json:"innerContent"`
}

func toNodeJSON(n *block.Node) nodeJSON {
	out := nodeJSON{
		Attrs:        n.Attrs,
		InnerBlocks:  make([]nodeJSON, 0, len(n.InnerBlocks)),
		InnerHTML:    n.HTML(),
		InnerContent: make([]*string, 0, len(n.InnerContent)),
	}
	if out.Attrs == nil {
		out.Attrs = attr.NewObject()
	}
	if !n.IsFreeform() {
		name := n.Name
		out.BlockName = &name
	}
	for _, child := range n.InnerBlocks {
		out.InnerBlocks = append(out.InnerBlocks, toNodeJSON(child))
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

// handleRender renders block content to HTML.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	html, err := s.renderContent(r.Context(), req.Content)
	if err != nil {
		s.writeRenderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{HTML: html})
}

// handleParse returns the block tree of the posted content.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	nodes := block.Parse(req.Content)
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeJSON(n))
	}
	writeJSON(w, http.StatusOK, out)
}

package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/blocktype"
)

// blockTypeJSON is the REST representation of a registered block type.
type blockTypeJSON struct {
	APIVersion      int                                `json:"api_version"`
	Name            string                             `json:"name"`
	Title           string                             `json:"title"`
	Description     string                             `json:"description"`
	Icon            string                             `json:"icon,omitempty"`
	Category        string                             `json:"category,omitempty"`
	Keywords        []string                           `json:"keywords"`
	Parent          []string                           `json:"parent,omitempty"`
	Ancestor        []string                           `json:"ancestor,omitempty"`
	ProvidesContext map[string]string                  `json:"provides_context"`
	UsesContext     []string                           `json:"uses_context"`
	Supports        *attr.Object                       `json:"supports"`
	Attributes      map[string]blocktype.AttributeSpec `json:"attributes"`
	IsDynamic       bool                               `json:"is_dynamic"`
	Variations      []blocktype.Variation              `json:"variations"`
}

func (s *Server) blockTypeJSON(r *http.Request, def *blocktype.Definition) blockTypeJSON {
	out := blockTypeJSON{
		APIVersion:      def.APIVersion,
		Name:            def.Name,
		Title:           def.Title,
		Description:     def.Description,
		Icon:            def.Icon,
		Category:        def.Category,
		Keywords:        def.Keywords,
		Parent:          def.Parent,
		Ancestor:        def.Ancestor,
		ProvidesContext: def.ProvidesContext,
		UsesContext:     def.UsesContext,
		Supports:        def.Supports,
		Attributes:      def.Attributes,
		IsDynamic:       def.IsDynamic(),
		Variations:      def.GetVariations(r.Context()),
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	if out.ProvidesContext == nil {
		out.ProvidesContext = map[string]string{}
	}
	if out.UsesContext == nil {
		out.UsesContext = []string{}
	}
	if out.Variations == nil {
		out.Variations = []blocktype.Variation{}
	}
	if out.Supports == nil {
		out.Supports = attr.NewObject()
	}
	return out
}

// handleBlockTypes lists registered block types, optionally limited to one
// namespace.
func (s *Server) handleBlockTypes(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")
	if ns == "" {
		ns = r.URL.Query().Get("namespace")
	}

	out := make([]blockTypeJSON, 0)
	for _, name := range s.deps.Registry.Names() {
		if ns != "" && !strings.HasPrefix(name, ns+"/") {
			continue
		}
		def := s.deps.Registry.Get(name)
		if def == nil {
			continue
		}
		out = append(out, s.blockTypeJSON(r, def))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBlockType returns one block type.
func (s *Server) handleBlockType(w http.ResponseWriter, r *http.Request) {
	def := s.lookupBlockType(r)
	if def == nil {
		writeError(w, http.StatusNotFound, "rest_block_type_invalid", "Invalid block type.")
		return
	}
	writeJSON(w, http.StatusOK, s.blockTypeJSON(r, def))
}

func (s *Server) lookupBlockType(r *http.Request) *blocktype.Definition {
	name := chi.URLParam(r, "namespace") + "/" + chi.URLParam(r, "name")
	return s.deps.Registry.Get(name)
}

type blockRendererRequest struct {
	Attributes *attr.Object `json:"attributes"`
}

type blockRendererResponse struct {
	Rendered string `json:"rendered"`
}

// handleBlockRenderer renders a dynamic block from posted attributes, the
// way the editor previews server-side blocks.
func (s *Server) handleBlockRenderer(w http.ResponseWriter, r *http.Request) {
	def := s.lookupBlockType(r)
	if def == nil || !def.IsDynamic() {
		writeError(w, http.StatusNotFound, "block_invalid", "Invalid block.")
		return
	}

	var req blockRendererRequest
	if r.ContentLength != 0 && !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Attributes == nil {
		req.Attributes = attr.NewObject()
	}

	html, err := s.renderBlock(r.Context(), block.New(def.Name, req.Attributes))
	if err != nil {
		s.writeRenderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blockRendererResponse{Rendered: html})
}

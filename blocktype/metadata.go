package blocktype

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jonwraymond/blockpress/attr"
)

// MetadataFile is the conventional name of a block metadata file.
const MetadataFile = "block.json"

//go:embed schema/block.schema.json
var metadataSchemaJSON []byte

var (
	metadataSchemaOnce sync.Once
	metadataSchema     *jsonschema.Schema
	metadataSchemaErr  error
)

func compiledMetadataSchema() (*jsonschema.Schema, error) {
	metadataSchemaOnce.Do(func() {
		const url = "blocktype://schema/block.schema.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(metadataSchemaJSON)); err != nil {
			metadataSchemaErr = err
			return
		}
		metadataSchema, metadataSchemaErr = compiler.Compile(url)
	})
	return metadataSchema, metadataSchemaErr
}

// metadata mirrors the block.json fields mapped onto Args.
type metadata struct {
	APIVersion      int                      `json:"apiVersion"`
	Name            string                   `json:"name"`
	Title           string                   `json:"title"`
	Category        string                   `json:"category"`
	Description     string                   `json:"description"`
	Icon            string                   `json:"icon"`
	Keywords        []string                 `json:"keywords"`
	Attributes      map[string]AttributeSpec `json:"attributes"`
	Supports        *attr.Object             `json:"supports"`
	ProvidesContext map[string]string        `json:"providesContext"`
	UsesContext     []string                 `json:"usesContext"`
	Parent          []string                 `json:"parent"`
	Ancestor        []string                 `json:"ancestor"`
	Variations      []Variation              `json:"variations"`
}

// MetadataOption customises a definition loaded from metadata.
type MetadataOption func(*Args)

// WithRenderCallback attaches a render callback, making the block dynamic.
func WithRenderCallback(fn RenderFunc) MetadataOption {
	return func(a *Args) { a.RenderCallback = fn }
}

// WithVariationCallback supplies variations computed on first access.
// It is ignored when the metadata lists variations explicitly.
func WithVariationCallback(fn func() []Variation) MetadataOption {
	return func(a *Args) {
		if a.Variations == nil {
			a.VariationCallback = fn
		}
	}
}

// WithArgs applies arbitrary overrides after the metadata is mapped.
func WithArgs(fn func(*Args)) MetadataOption {
	return func(a *Args) { fn(a) }
}

// ParseMetadata validates block.json content and maps it to a name and Args.
func ParseMetadata(data []byte) (string, Args, error) {
	schema, err := compiledMetadataSchema()
	if err != nil {
		return "", Args{}, fmt.Errorf("%w: schema: %v", ErrInvalidMetadata, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return "", Args{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := schema.Validate(instance); err != nil {
		return "", Args{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	var md metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return "", Args{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	args := Args{
		APIVersion:      md.APIVersion,
		Title:           md.Title,
		Category:        md.Category,
		Description:     md.Description,
		Icon:            md.Icon,
		Keywords:        md.Keywords,
		Attributes:      md.Attributes,
		Supports:        md.Supports,
		ProvidesContext: md.ProvidesContext,
		UsesContext:     md.UsesContext,
		Parent:          md.Parent,
		Ancestor:        md.Ancestor,
		Variations:      md.Variations,
	}
	return md.Name, args, nil
}

// RegisterFromMetadata reads a block.json from fsys and registers it.
// p may name the file itself or the directory containing it.
func (r *Registry) RegisterFromMetadata(fsys fs.FS, p string, opts ...MetadataOption) (*Definition, error) {
	file := p
	if path.Base(p) != MetadataFile {
		file = path.Join(p, MetadataFile)
	}

	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("blocktype: read %s: %w", file, err)
	}

	name, args, err := ParseMetadata(data)
	if err != nil {
		return nil, r.fail("register", name, fmt.Errorf("%s: %w", file, err))
	}
	for _, opt := range opts {
		opt(&args)
	}
	return r.RegisterName(name, args)
}

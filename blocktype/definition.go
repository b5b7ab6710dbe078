package blocktype

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jonwraymond/blockpress/attr"
)

// Reserved attribute names present on every block type.
const (
	AttrLock     = "lock"
	AttrMetadata = "metadata"
)

// reservedAttributes are merged into every schema without overriding
// caller entries of the same name.
var reservedAttributes = map[string]AttributeSpec{
	AttrLock:     {Type: []string{"object"}},
	AttrMetadata: {Type: []string{"object"}},
}

// Instance is the block being rendered, as seen by a render callback.
type Instance interface {
	// BlockName returns the canonical block name.
	BlockName() string

	// ContextValue returns a block context value provided by an ancestor.
	ContextValue(name string) (attr.Value, bool)

	// WrapperAttributes returns the block wrapper's HTML attribute string
	// with supports classes and styles merged into extra.
	WrapperAttributes(extra map[string]string) string
}

// RenderFunc renders a dynamic block from prepared attributes and the
// already rendered inner content. inst may be nil.
type RenderFunc func(ctx context.Context, attrs *attr.Object, content string, inst Instance) (string, error)

// Variation is a named preset of attribute values for a block type.
type Variation struct {
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
	IsDefault   bool         `json:"isDefault,omitempty"`
	Attributes  *attr.Object `json:"attributes,omitempty"`
	Scope       []string     `json:"scope,omitempty"`
}

// VariationSet is the value passed through the variations filter.
type VariationSet struct {
	Type       *Definition
	Variations []Variation
}

// Args holds the declarative properties of a block type.
type Args struct {
	APIVersion  int
	Title       string
	Category    string
	Description string
	Keywords    []string
	Icon        string

	// Attributes is the caller-declared schema. The reserved lock and
	// metadata attributes are added on registration.
	Attributes map[string]AttributeSpec

	// Supports holds the supports flags, e.g. {"color":{"text":true}}.
	Supports *attr.Object

	RenderCallback RenderFunc

	// ProvidesContext maps context names to the attribute providing them.
	ProvidesContext map[string]string
	UsesContext     []string
	Parent          []string
	Ancestor        []string

	// Variations, when non-nil, takes precedence over VariationCallback.
	Variations        []Variation
	VariationCallback func() []Variation
}

// Definition is a registered block type.
//
// A Definition must not be copied after first use.
type Definition struct {
	Name string
	Args

	setupOnce   sync.Once
	passThrough bool

	// compileMu guards the validators compiled from Attributes. They are
	// rebuilt after AddAttribute changes the schema.
	compileMu  sync.Mutex
	compiled   bool
	validators map[string]*jsonschema.Schema
	compileErr error

	variationsOnce sync.Once
	computed       []Variation

	registry *Registry
}

// NewDefinition returns a definition for name with the given arguments.
func NewDefinition(name string, args Args) *Definition {
	d := &Definition{Name: name, Args: args}
	d.setup()
	return d
}

// setup records whether the caller declared a schema and merges the
// reserved attributes in.
func (d *Definition) setup() {
	d.setupOnce.Do(func() {
		d.passThrough = len(d.Attributes) == 0
		merged := make(map[string]AttributeSpec, len(d.Attributes)+len(reservedAttributes))
		for k, v := range reservedAttributes {
			merged[k] = v
		}
		for k, v := range d.Attributes {
			merged[k] = v
		}
		d.Attributes = merged
		if d.Supports == nil {
			d.Supports = attr.NewObject()
		}
	})
}

// AddAttribute declares an attribute unless the schema already has it.
// It is intended for attribute registrars running before registration
// completes.
func (d *Definition) AddAttribute(name string, spec AttributeSpec) {
	d.setup()
	if _, ok := d.Attributes[name]; !ok {
		d.Attributes[name] = spec
		d.resetValidators()
	}
}

// resetValidators discards the compiled attribute validators.
func (d *Definition) resetValidators() {
	d.compileMu.Lock()
	d.compiled = false
	d.compileMu.Unlock()
}

// IsDynamic reports whether the block has a render callback.
func (d *Definition) IsDynamic() bool {
	return d.RenderCallback != nil
}

// SupportValue returns the supports value at path.
func (d *Definition) SupportValue(path ...string) (attr.Value, bool) {
	d.setup()
	return d.Supports.Path(path...)
}

// HasSupport reports whether the feature at path is enabled: true, or a
// non-empty object or array. Absent features are unsupported.
func (d *Definition) HasSupport(path ...string) bool {
	return d.HasSupportOr(false, path...)
}

// HasSupportOr is HasSupport with a default for absent features.
func (d *Definition) HasSupportOr(def bool, path ...string) bool {
	v, ok := d.SupportValue(path...)
	if !ok {
		return def
	}
	switch v.Kind() {
	case attr.KindBool:
		b, _ := v.AsBool()
		return b
	case attr.KindObject, attr.KindArray:
		return v.Truthy()
	default:
		return false
	}
}

// Render produces the block's HTML. Static blocks return content
// verbatim; dynamic blocks call the render callback with prepared
// attributes and return its output as-is.
func (d *Definition) Render(ctx context.Context, raw *attr.Object, content string, inst Instance) (string, error) {
	if !d.IsDynamic() {
		return content, nil
	}
	prepared := d.PrepareAttributes(raw)
	return d.RenderCallback(ctx, prepared.Attributes, content, inst)
}

// GetVariations returns the block's variations. Explicit variations win
// over the callback, which is invoked at most once. The result is always
// passed through the registry's variations filter.
func (d *Definition) GetVariations(ctx context.Context) []Variation {
	base := d.Variations
	if base == nil && d.VariationCallback != nil {
		d.variationsOnce.Do(func() {
			d.computed = d.VariationCallback()
		})
		base = d.computed
	}
	if d.registry == nil {
		return base
	}
	return d.registry.Variations.Apply(ctx, VariationSet{Type: d, Variations: base}).Variations
}

// AttributeSpec declares one attribute of a block type.
type AttributeSpec struct {
	// Type lists the accepted JSON types. Empty accepts any value.
	Type []string `json:"type,omitempty"`

	Default *attr.Value  `json:"default,omitempty"`
	Enum    []attr.Value `json:"enum,omitempty"`

	// Source names where the editor sources the value from the markup;
	// sourced attributes are not present in delimiters.
	Source    string `json:"source,omitempty"`
	Selector  string `json:"selector,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Role      string `json:"role,omitempty"`
}

// UnmarshalJSON accepts "type" as a string or a list of strings.
func (s *AttributeSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      json.RawMessage `json:"type"`
		Default   *attr.Value     `json:"default"`
		Enum      []attr.Value    `json:"enum"`
		Source    string          `json:"source"`
		Selector  string          `json:"selector"`
		Attribute string          `json:"attribute"`
		Role      string          `json:"role"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*s = AttributeSpec{
		Default:   raw.Default,
		Enum:      raw.Enum,
		Source:    raw.Source,
		Selector:  raw.Selector,
		Attribute: raw.Attribute,
		Role:      raw.Role,
	}

	trimmed := bytes.TrimSpace(raw.Type)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '"':
		var t string
		if err := json.Unmarshal(trimmed, &t); err != nil {
			return err
		}
		s.Type = []string{t}
	default:
		if err := json.Unmarshal(trimmed, &s.Type); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes a single type as a string.
func (s AttributeSpec) MarshalJSON() ([]byte, error) {
	out := attr.NewObject()
	switch len(s.Type) {
	case 0:
	case 1:
		out.Set("type", attr.String(s.Type[0]))
	default:
		out.Set("type", attr.MustFromInterface(s.Type))
	}
	if s.Default != nil {
		out.Set("default", *s.Default)
	}
	if len(s.Enum) > 0 {
		out.Set("enum", attr.Array(s.Enum...))
	}
	for _, kv := range [][2]string{
		{"source", s.Source}, {"selector", s.Selector}, {"attribute", s.Attribute}, {"role", s.Role},
	} {
		if kv[1] != "" {
			out.Set(kv[0], attr.String(kv[1]))
		}
	}
	return out.MarshalJSON()
}

// DefaultValue returns a pointer to v, for AttributeSpec.Default.
func DefaultValue(v attr.Value) *attr.Value { return &v }

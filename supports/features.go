package supports

import (
	"strings"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/block"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/supports/styles"
)

// Result holds the classes and declarations computed for one block.
type Result struct {
	Classes []string
	Styles  []styles.Declaration
}

func (r *Result) addClass(classes ...string) {
	for _, c := range classes {
		if c != "" {
			r.Classes = append(r.Classes, c)
		}
	}
}

func (r *Result) addStyle(prop, value string) {
	if value == "" {
		return
	}
	r.Styles = append(r.Styles, styles.Declaration{Property: prop, Value: value})
}

// ClassString returns the deduplicated classes joined by spaces.
func (r Result) ClassString() string {
	return strings.Join(dedupe(r.Classes), " ")
}

// StyleString returns the declarations with repeated properties collapsed.
func (r Result) StyleString() string {
	d := &styles.Declarations{}
	for _, decl := range r.Styles {
		d.Set(decl.Property, decl.Value)
	}
	return d.String()
}

// Feature is one supports feature.
type Feature struct {
	Name string

	// Attributes declares the attributes the feature reads when def
	// supports it. It may be nil.
	Attributes func(def *blocktype.Definition) map[string]blocktype.AttributeSpec

	// Apply adds the feature's classes and styles to out.
	Apply func(def *blocktype.Definition, attrs *attr.Object, out *Result)
}

// Features is an ordered set of supports features.
//
// Contract:
// - Concurrency: safe for concurrent use once construction is complete.
type Features struct {
	list []Feature
}

// New returns the built-in features in their fixed order.
func New() *Features {
	return &Features{list: []Feature{
		generatedClassName(),
		align(),
		color(),
		typography(),
		spacing(),
		customClassName(),
	}}
}

// Register appends a feature; it runs after the built-in ones.
func (f *Features) Register(feature Feature) {
	f.list = append(f.list, feature)
}

// Names returns the feature names in application order.
func (f *Features) Names() []string {
	names := make([]string, len(f.list))
	for i, feat := range f.list {
		names[i] = feat.Name
	}
	return names
}

// Apply computes the classes and declarations for a block with the given
// prepared attributes.
func (f *Features) Apply(def *blocktype.Definition, attrs *attr.Object) Result {
	var out Result
	if def == nil {
		return out
	}
	for _, feat := range f.list {
		if feat.Apply != nil {
			feat.Apply(def, attrs, &out)
		}
	}
	return out
}

// RegisterAttributes declares the attributes of every feature def
// supports. It is a blocktype.AttributeRegistrar.
func (f *Features) RegisterAttributes(def *blocktype.Definition) {
	for _, feat := range f.list {
		if feat.Attributes == nil {
			continue
		}
		for name, spec := range feat.Attributes(def) {
			def.AddAttribute(name, spec)
		}
	}
}

var builtin = New()

// Apply computes the built-in features for def and attrs.
func Apply(def *blocktype.Definition, attrs *attr.Object) Result {
	return builtin.Apply(def, attrs)
}

// RegisterAttributes is Features.RegisterAttributes for the built-in
// features.
func RegisterAttributes(def *blocktype.Definition) {
	builtin.RegisterAttributes(def)
}

// GeneratedClassName returns the wp-block-* class for a block name:
// "core/paragraph" becomes "wp-block-paragraph", "acme/card" becomes
// "wp-block-acme-card".
func GeneratedClassName(name string) string {
	name = block.StripCoreNamespace(name)
	return "wp-block-" + strings.ReplaceAll(name, "/", "-")
}

var (
	stringAttr = blocktype.AttributeSpec{Type: []string{"string"}}
	objectAttr = blocktype.AttributeSpec{Type: []string{"object"}}
)

func generatedClassName() Feature {
	return Feature{
		Name: "generated-classname",
		Apply: func(def *blocktype.Definition, _ *attr.Object, out *Result) {
			if def.HasSupportOr(true, "className") {
				out.addClass(GeneratedClassName(def.Name))
			}
		},
	}
}

func customClassName() Feature {
	return Feature{
		Name: "custom-classname",
		Attributes: func(def *blocktype.Definition) map[string]blocktype.AttributeSpec {
			if !def.HasSupportOr(true, "customClassName") {
				return nil
			}
			return map[string]blocktype.AttributeSpec{"className": stringAttr}
		},
		Apply: func(def *blocktype.Definition, attrs *attr.Object, out *Result) {
			if !def.HasSupportOr(true, "customClassName") {
				return
			}
			if cls, ok := attrs.StringAt("className"); ok {
				out.addClass(strings.Fields(cls)...)
			}
		},
	}
}

var allAlignments = []string{"left", "center", "right", "wide", "full"}

// alignments returns the alignments def allows.
func alignments(def *blocktype.Definition) []string {
	v, ok := def.SupportValue("align")
	if !ok {
		return nil
	}
	if b, isBool := v.AsBool(); isBool {
		if b {
			return allAlignments
		}
		return nil
	}
	arr, isArr := v.AsArray()
	if !isArr {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

func align() Feature {
	return Feature{
		Name: "align",
		Attributes: func(def *blocktype.Definition) map[string]blocktype.AttributeSpec {
			if len(alignments(def)) == 0 {
				return nil
			}
			return map[string]blocktype.AttributeSpec{"align": stringAttr}
		},
		Apply: func(def *blocktype.Definition, attrs *attr.Object, out *Result) {
			value, ok := attrs.StringAt("align")
			if !ok || value == "" {
				return
			}
			for _, a := range alignments(def) {
				if a == value {
					out.addClass("align" + value)
					return
				}
			}
		},
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

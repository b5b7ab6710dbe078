package supports

import (
	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/supports/styles"
)

// typographyProperty maps a style.typography key to its CSS property.
type typographyProperty struct {
	key      string
	css      string
	legacy   bool // also enabled by a top-level supports flag of the same key
	named    string
	classFmt string
}

var typographyProperties = []typographyProperty{
	{key: "fontSize", css: "font-size", legacy: true, named: "fontSize", classFmt: "-font-size"},
	{key: "lineHeight", css: "line-height", legacy: true},
	{key: "fontFamily", css: "font-family", named: "fontFamily", classFmt: "-font-family"},
	{key: "fontStyle", css: "font-style"},
	{key: "fontWeight", css: "font-weight"},
	{key: "letterSpacing", css: "letter-spacing"},
	{key: "textDecoration", css: "text-decoration"},
	{key: "textTransform", css: "text-transform"},
}

func (p typographyProperty) supported(def *blocktype.Definition) bool {
	if def.HasSupport("typography", p.key) {
		return true
	}
	return p.legacy && def.HasSupport(p.key)
}

func typography() Feature {
	return Feature{
		Name: "typography",
		Attributes: func(def *blocktype.Definition) map[string]blocktype.AttributeSpec {
			var out map[string]blocktype.AttributeSpec
			for _, p := range typographyProperties {
				if !p.supported(def) {
					continue
				}
				if out == nil {
					out = map[string]blocktype.AttributeSpec{"style": objectAttr}
				}
				if p.named != "" {
					out[p.named] = stringAttr
				}
			}
			return out
		},
		Apply: applyTypography,
	}
}

func applyTypography(def *blocktype.Definition, attrs *attr.Object, out *Result) {
	for _, p := range typographyProperties {
		if !p.supported(def) {
			continue
		}
		if p.named != "" {
			if slug, ok := attrs.StringAt(p.named); ok && slug != "" {
				out.addClass("has-" + slug + p.classFmt)
				continue
			}
		}
		v, ok := attrs.Path("style", "typography", p.key)
		if !ok {
			continue
		}
		if v.Kind() != attr.KindString && v.Kind() != attr.KindNumber {
			continue
		}
		out.addStyle(p.css, styles.PresetValue(v.Text()))
	}
}

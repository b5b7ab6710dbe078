package supports

import (
	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/supports/styles"
)

// colorSupport is the resolved supports.color flag set. Link colors are
// never applied here.
type colorSupport struct {
	text       bool
	background bool
	gradients  bool
}

func (c colorSupport) any() bool { return c.text || c.background || c.gradients }

// resolveColor reads supports.color. true enables text and background;
// an object enables text and background unless they are set to false,
// and gradients only when set.
func resolveColor(def *blocktype.Definition) colorSupport {
	v, ok := def.SupportValue("color")
	if !ok {
		return colorSupport{}
	}
	if b, isBool := v.AsBool(); isBool {
		return colorSupport{text: b, background: b}
	}
	if _, isObj := v.AsObject(); !isObj {
		return colorSupport{}
	}
	return colorSupport{
		text:       def.HasSupportOr(true, "color", "text"),
		background: def.HasSupportOr(true, "color", "background"),
		gradients:  def.HasSupport("color", "gradients"),
	}
}

func color() Feature {
	return Feature{
		Name: "colors",
		Attributes: func(def *blocktype.Definition) map[string]blocktype.AttributeSpec {
			cs := resolveColor(def)
			if !cs.any() {
				return nil
			}
			out := map[string]blocktype.AttributeSpec{"style": objectAttr}
			if cs.text {
				out["textColor"] = stringAttr
			}
			if cs.background {
				out["backgroundColor"] = stringAttr
			}
			if cs.gradients {
				out["gradient"] = stringAttr
			}
			return out
		},
		Apply: applyColor,
	}
}

func applyColor(def *blocktype.Definition, attrs *attr.Object, out *Result) {
	cs := resolveColor(def)
	if !cs.any() {
		return
	}

	if cs.text {
		if slug, ok := attrs.StringAt("textColor"); ok && slug != "" {
			out.addClass("has-text-color", "has-"+slug+"-color")
		} else if custom, ok := attrs.StringAt("style", "color", "text"); ok && custom != "" {
			if slug, isPreset := styles.PresetSlug(custom, "color"); isPreset {
				out.addClass("has-text-color", "has-"+slug+"-color")
			} else {
				out.addClass("has-text-color")
				out.addStyle("color", custom)
			}
		}
	}

	if cs.background {
		if slug, ok := attrs.StringAt("backgroundColor"); ok && slug != "" {
			out.addClass("has-background", "has-"+slug+"-background-color")
		} else if custom, ok := attrs.StringAt("style", "color", "background"); ok && custom != "" {
			if slug, isPreset := styles.PresetSlug(custom, "color"); isPreset {
				out.addClass("has-background", "has-"+slug+"-background-color")
			} else {
				out.addClass("has-background")
				out.addStyle("background-color", custom)
			}
		}
	}

	if cs.gradients {
		if slug, ok := attrs.StringAt("gradient"); ok && slug != "" {
			out.addClass("has-"+slug+"-gradient-background", "has-background")
		} else if custom, ok := attrs.StringAt("style", "color", "gradient"); ok && custom != "" {
			out.addClass("has-background")
			out.addStyle("background", styles.PresetValue(custom))
		}
	}
}

package supports

import (
	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/supports/styles"
)

var sides = []string{"top", "right", "bottom", "left"}

func spacingSupported(def *blocktype.Definition, box string) bool {
	return def.HasSupport("spacing", box)
}

func spacing() Feature {
	return Feature{
		Name: "spacing",
		Attributes: func(def *blocktype.Definition) map[string]blocktype.AttributeSpec {
			if !spacingSupported(def, "padding") && !spacingSupported(def, "margin") {
				return nil
			}
			return map[string]blocktype.AttributeSpec{"style": objectAttr}
		},
		Apply: func(def *blocktype.Definition, attrs *attr.Object, out *Result) {
			for _, box := range []string{"padding", "margin"} {
				if spacingSupported(def, box) {
					applyBox(box, attrs, out)
				}
			}
		},
	}
}

// applyBox writes style.spacing.<box>, either a single value or a
// per-side object.
func applyBox(box string, attrs *attr.Object, out *Result) {
	v, ok := attrs.Path("style", "spacing", box)
	if !ok {
		return
	}
	if s, isStr := v.AsString(); isStr {
		out.addStyle(box, styles.PresetValue(s))
		return
	}
	obj, isObj := v.AsObject()
	if !isObj {
		return
	}
	for _, side := range sides {
		if s, ok := obj.StringAt(side); ok {
			out.addStyle(box+"-"+side, styles.PresetValue(s))
		}
	}
}

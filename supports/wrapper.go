package supports

import (
	"html"
	"sort"
	"strings"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/supports/styles"
)

// WrapperAttributes renders the block wrapper's HTML attributes.
//
// Caller-supplied classes come first, followed by the computed ones, with
// duplicates removed. Caller styles are merged with the computed
// declarations by property name, the computed value winning. Remaining
// extra attributes follow in name order. Values are HTML-escaped.
func (f *Features) WrapperAttributes(def *blocktype.Definition, attrs *attr.Object, extra map[string]string) string {
	res := f.Apply(def, attrs)

	classes := dedupe(append(strings.Fields(extra["class"]), res.Classes...))

	decls := styles.Parse(extra["style"])
	for _, d := range res.Styles {
		decls.Set(d.Property, d.Value)
	}

	var parts []string
	if s := decls.String(); s != "" {
		parts = append(parts, `style="`+html.EscapeString(s)+`"`)
	}
	if len(classes) > 0 {
		parts = append(parts, `class="`+html.EscapeString(strings.Join(classes, " "))+`"`)
	}

	names := make([]string, 0, len(extra))
	for k := range extra {
		if k != "class" && k != "style" && k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, html.EscapeString(k)+`="`+html.EscapeString(extra[k])+`"`)
	}
	return strings.Join(parts, " ")
}

// WrapperAttributes is Features.WrapperAttributes for the built-in
// features.
func WrapperAttributes(def *blocktype.Definition, attrs *attr.Object, extra map[string]string) string {
	return builtin.WrapperAttributes(def, attrs, extra)
}

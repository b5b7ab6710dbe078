package interactivity

import (
	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/supports/styles"
)

// MergeStyleProperty sets or removes one property in an inline style
// attribute value. A falsy value ("", null, false, 0) removes the
// property; any other value is written as text and moves the property to
// the end. Unrelated properties keep their order.
//
//	MergeStyleProperty("color:red;margin:5px;", "color", attr.String(""))
//	// "margin:5px;"
func MergeStyleProperty(style, prop string, value attr.Value) string {
	decls := styles.Parse(style)
	if !value.Truthy() {
		decls.Remove(prop)
	} else {
		decls.Set(prop, value.Text())
	}
	return decls.String()
}

package styles

import (
	"strings"
)

// Declaration is a single CSS property/value pair.
type Declaration struct {
	Property string
	Value    string
}

// String renders the declaration as "prop:value;".
func (d Declaration) String() string {
	return d.Property + ":" + d.Value + ";"
}

// Declarations is an ordered list of CSS declarations with unique
// property names. The zero value is empty and ready to use.
type Declarations struct {
	items []Declaration
}

// Parse splits an inline style attribute value into declarations.
// Entries without a property name or a colon are skipped; a repeated
// property keeps its last value at its last position.
func Parse(style string) *Declarations {
	d := &Declarations{}
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		d.Set(prop, value)
	}
	return d
}

// Len returns the number of declarations.
func (d *Declarations) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Get returns the value of prop.
func (d *Declarations) Get(prop string) (string, bool) {
	if i := d.index(prop); i >= 0 {
		return d.items[i].Value, true
	}
	return "", false
}

// Set stores value for prop, moving prop to the end. An empty value
// removes the property.
func (d *Declarations) Set(prop, value string) {
	d.Remove(prop)
	if value == "" {
		return
	}
	d.items = append(d.items, Declaration{Property: prop, Value: value})
}

// Remove deletes prop and reports whether it was present.
func (d *Declarations) Remove(prop string) bool {
	i := d.index(prop)
	if i < 0 {
		return false
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	return true
}

// Merge sets every declaration of other in order.
func (d *Declarations) Merge(other *Declarations) {
	for _, decl := range other.All() {
		d.Set(decl.Property, decl.Value)
	}
}

// All returns a copy of the declarations in order.
func (d *Declarations) All() []Declaration {
	if d.Len() == 0 {
		return nil
	}
	out := make([]Declaration, len(d.items))
	copy(out, d.items)
	return out
}

// String renders the declarations as "a:1;b:2;". Empty lists render "".
func (d *Declarations) String() string {
	if d.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for _, decl := range d.items {
		b.WriteString(decl.String())
	}
	return b.String()
}

func (d *Declarations) index(prop string) int {
	if d == nil {
		return -1
	}
	for i, decl := range d.items {
		if decl.Property == prop {
			return i
		}
	}
	return -1
}

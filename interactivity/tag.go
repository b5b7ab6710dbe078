package interactivity

import (
	"html"
	"strings"
)

// rawAttr is one attribute occurrence inside a raw start tag.
type rawAttr struct {
	name      string // lowercased
	value     string // entity-decoded
	hasValue  bool
	start     int // offset of the name, preceded by whitespace
	end       int // offset just past the value
	wsStart   int // offset of the whitespace preceding the name
	duplicate bool
}

// update is a pending change to an attribute.
type update struct {
	remove    bool
	value     string
	valueless bool
}

// tag is a start tag being edited. Only attributes with pending updates
// are rewritten on output; everything else keeps its original bytes.
type tag struct {
	raw     string
	name    string
	nameEnd int
	attrs   []rawAttr
	first   map[string]int // index of the first occurrence by name

	updates map[string]*update
	added   []string
}

// parseTag lexes the attributes of a raw start tag such as
// `<div class="a" hidden data-x='1'>`.
func parseTag(raw, name string) *tag {
	t := &tag{raw: raw, name: name, first: make(map[string]int)}

	i := 1
	for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}
	t.nameEnd = i

	for i < len(raw) {
		wsStart := i
		for i < len(raw) && (isTagSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			break
		}

		start := i
		// A leading "=" belongs to the name.
		i++
		for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' && raw[i] != '=' {
			i++
		}
		a := rawAttr{name: strings.ToLower(raw[start:i]), start: start, wsStart: wsStart}

		j := i
		for j < len(raw) && isTagSpace(raw[j]) {
			j++
		}
		if j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isTagSpace(raw[j]) {
				j++
			}
			a.hasValue = true
			switch {
			case j < len(raw) && (raw[j] == '"' || raw[j] == '\''):
				q := raw[j]
				k := strings.IndexByte(raw[j+1:], q)
				if k < 0 {
					a.value = raw[j+1:]
					j = len(raw)
				} else {
					a.value = raw[j+1 : j+1+k]
					j = j + 2 + k
				}
			default:
				k := j
				for k < len(raw) && !isTagSpace(raw[k]) && raw[k] != '>' {
					k++
				}
				a.value = raw[j:k]
				j = k
			}
			a.value = html.UnescapeString(a.value)
			i = j
		}
		a.end = i

		if _, seen := t.first[a.name]; seen {
			a.duplicate = true
		} else {
			t.first[a.name] = len(t.attrs)
		}
		t.attrs = append(t.attrs, a)
	}
	return t
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// names returns the attribute names in order, first occurrences only.
func (t *tag) names() []string {
	out := make([]string, 0, len(t.first))
	for _, a := range t.attrs {
		if !a.duplicate {
			out = append(out, a.name)
		}
	}
	return out
}

// original returns the attribute as written in the source.
func (t *tag) original(name string) (rawAttr, bool) {
	i, ok := t.first[name]
	if !ok {
		return rawAttr{}, false
	}
	return t.attrs[i], true
}

// get returns the current value of an attribute, including pending
// updates. present is false when the attribute is absent or removed.
func (t *tag) get(name string) (value string, present bool) {
	if u, ok := t.updates[name]; ok {
		if u.remove {
			return "", false
		}
		return u.value, true
	}
	a, ok := t.original(name)
	if !ok {
		return "", false
	}
	return a.value, true
}

func (t *tag) set(name, value string) {
	t.put(name, &update{value: value})
}

func (t *tag) setValueless(name string) {
	t.put(name, &update{valueless: true})
}

func (t *tag) remove(name string) {
	t.put(name, &update{remove: true})
}

// restore drops any pending update for name.
func (t *tag) restore(name string) {
	delete(t.updates, name)
}

func (t *tag) put(name string, u *update) {
	if t.updates == nil {
		t.updates = make(map[string]*update)
	}
	if _, known := t.updates[name]; !known {
		if _, exists := t.first[name]; !exists {
			t.added = append(t.added, name)
		}
	}
	t.updates[name] = u
}

// unchanged reports whether the pending updates leave an attribute as it
// was written, so the source bytes can be kept.
func (t *tag) unchanged(name string, u *update) bool {
	a, ok := t.original(name)
	switch {
	case !ok:
		return u.remove
	case u.remove:
		return false
	case u.valueless:
		return !a.hasValue
	default:
		return a.hasValue && a.value == u.value
	}
}

// String renders the tag with pending updates applied.
func (t *tag) String() string {
	dirty := false
	for name, u := range t.updates {
		if !t.unchanged(name, u) {
			dirty = true
			break
		}
	}
	if !dirty {
		return t.raw
	}

	var b strings.Builder
	b.WriteString(t.raw[:t.nameEnd])
	for _, name := range t.added {
		if u, ok := t.updates[name]; ok && !u.remove {
			b.WriteByte(' ')
			b.WriteString(renderAttr(name, u))
		}
	}

	pos := t.nameEnd
	for _, a := range t.attrs {
		u, touched := t.updates[a.name]
		if !touched || t.unchanged(a.name, u) {
			continue
		}
		if u.remove || a.duplicate {
			b.WriteString(t.raw[pos:a.wsStart])
			pos = a.end
			continue
		}
		b.WriteString(t.raw[pos:a.start])
		b.WriteString(renderAttr(a.name, u))
		pos = a.end
	}
	b.WriteString(t.raw[pos:])
	return b.String()
}

func renderAttr(name string, u *update) string {
	if u.valueless {
		return name
	}
	return name + `="` + html.EscapeString(u.value) + `"`
}

package block

import "strings"

// CoreNamespace is inferred for bare block slugs.
const CoreNamespace = "core"

// CanonicalName resolves a bare slug into the core namespace.
func CanonicalName(name string) string {
	if name == "" || strings.Contains(name, "/") {
		return name
	}
	return CoreNamespace + "/" + name
}

// StripCoreNamespace removes a leading "core/" from name.
func StripCoreNamespace(name string) string {
	return strings.TrimPrefix(name, CoreNamespace+"/")
}

// SplitName returns the namespace and slug of a canonical name.
func SplitName(name string) (namespace, slug string) {
	name = CanonicalName(name)
	namespace, slug, _ = strings.Cut(name, "/")
	return namespace, slug
}

// HasBlock reports whether content contains an opening or void delimiter
// for the named block. Bare names match the core namespace, and core blocks
// match whether or not the delimiter spells out the namespace.
func HasBlock(content, name string) bool {
	if !HasBlocks(content) {
		return false
	}
	name = CanonicalName(name)
	if strings.Contains(content, "<!-- wp:"+name+" ") {
		return true
	}
	if short := StripCoreNamespace(name); short != name {
		return strings.Contains(content, "<!-- wp:"+short+" ")
	}
	return false
}

// HasBlocks reports whether content contains any block delimiter.
func HasBlocks(content string) bool {
	return strings.Contains(content, "<!-- wp:")
}

// scanSegment returns the length of a name segment [a-z][a-z0-9_-]* at the
// start of s, or 0.
func scanSegment(s string) int {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return 0
	}
	i := 1
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			i++
			continue
		}
		break
	}
	return i
}

// scanName reads "segment" or "segment/segment" from the start of s.
func scanName(s string) (string, bool) {
	n := scanSegment(s)
	if n == 0 {
		return "", false
	}
	if n < len(s) && s[n] == '/' {
		m := scanSegment(s[n+1:])
		if m == 0 {
			return "", false
		}
		n += 1 + m
	}
	return s[:n], true
}

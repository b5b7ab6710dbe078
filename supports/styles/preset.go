package styles

import "strings"

const presetPrefix = "var:"

// PresetValue converts a preset reference such as "var:preset|color|red"
// into the CSS custom property "var(--wp--preset--color--red)". Other
// values are returned unchanged.
func PresetValue(v string) string {
	if !strings.HasPrefix(v, presetPrefix) {
		return v
	}
	parts := strings.Split(strings.TrimPrefix(v, presetPrefix), "|")
	for _, p := range parts {
		if p == "" {
			return v
		}
	}
	return "var(--wp--" + strings.Join(parts, "--") + ")"
}

// PresetSlug returns the slug of a preset reference of the given kind,
// e.g. PresetSlug("var:preset|color|red", "color") returns "red".
func PresetSlug(v, kind string) (string, bool) {
	prefix := presetPrefix + "preset|" + kind + "|"
	if !strings.HasPrefix(v, prefix) {
		return "", false
	}
	slug := strings.TrimPrefix(v, prefix)
	if slug == "" || strings.Contains(slug, "|") {
		return "", false
	}
	return slug, true
}

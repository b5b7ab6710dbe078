package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Errors returned by registration and argument validation.
var (
	ErrInvalidPostType = errors.New("query: invalid post type")
	ErrInvalidTaxonomy = errors.New("query: invalid taxonomy")
)

// PostType describes a registered post type.
type PostType struct {
	Name              string `json:"name"`
	Public            bool   `json:"public"`
	ExcludeFromSearch bool   `json:"exclude_from_search"`
	Hierarchical      bool   `json:"hierarchical"`
}

// Taxonomy describes a registered taxonomy.
type Taxonomy struct {
	Name         string   `json:"name"`
	ObjectTypes  []string `json:"object_types"`
	Hierarchical bool     `json:"hierarchical"`
	Public       bool     `json:"public"`
}

// Types holds the registered post types and taxonomies. Registration
// changes the SQL generated for identical arguments, so it is part of
// every cache key.
//
// Contract:
// - Concurrency: safe for concurrent use.
type Types struct {
	mu         sync.RWMutex
	postTypes  map[string]PostType
	taxonomies map[string]Taxonomy
}

// NewTypes returns a registry holding the built-in post types and
// taxonomies.
func NewTypes() *Types {
	t := &Types{
		postTypes:  make(map[string]PostType),
		taxonomies: make(map[string]Taxonomy),
	}
	for _, pt := range []PostType{
		{Name: "post", Public: true},
		{Name: "page", Public: true, Hierarchical: true},
		{Name: "attachment", Public: true},
		{Name: "revision", ExcludeFromSearch: true},
		{Name: "nav_menu_item", ExcludeFromSearch: true},
		{Name: "wp_block", ExcludeFromSearch: true},
	} {
		t.postTypes[pt.Name] = pt
	}
	for _, tax := range []Taxonomy{
		{Name: "category", ObjectTypes: []string{"post"}, Hierarchical: true, Public: true},
		{Name: "post_tag", ObjectTypes: []string{"post"}, Public: true},
		{Name: "nav_menu", ObjectTypes: []string{"nav_menu_item"}},
	} {
		t.taxonomies[tax.Name] = tax
	}
	return t
}

// RegisterPostType adds or replaces a post type.
func (t *Types) RegisterPostType(pt PostType) error {
	if err := validateTypeName(pt.Name, 20); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPostType, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postTypes[pt.Name] = pt
	return nil
}

// UnregisterPostType removes a post type.
func (t *Types) UnregisterPostType(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.postTypes[name]; !ok {
		return false
	}
	delete(t.postTypes, name)
	return true
}

// RegisterTaxonomy adds or replaces a taxonomy.
func (t *Types) RegisterTaxonomy(tax Taxonomy) error {
	if err := validateTypeName(tax.Name, 32); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTaxonomy, err)
	}
	tax.ObjectTypes = sortedUnique(tax.ObjectTypes)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taxonomies[tax.Name] = tax
	return nil
}

// UnregisterTaxonomy removes a taxonomy.
func (t *Types) UnregisterTaxonomy(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.taxonomies[name]; !ok {
		return false
	}
	delete(t.taxonomies, name)
	return true
}

// PostType returns a registered post type.
func (t *Types) PostType(name string) (PostType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pt, ok := t.postTypes[name]
	return pt, ok
}

// Taxonomy returns a registered taxonomy.
func (t *Types) Taxonomy(name string) (Taxonomy, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tax, ok := t.taxonomies[name]
	return tax, ok
}

// TaxonomyNames returns the registered taxonomy names, sorted.
func (t *Types) TaxonomyNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.taxonomies))
	for name := range t.taxonomies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchableTypes returns the post types included by post_type=any,
// sorted.
func (t *Types) SearchableTypes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for name, pt := range t.postTypes {
		if !pt.ExcludeFromSearch {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// fingerprint describes the registrations that shape generated SQL.
func (t *Types) fingerprint() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	taxes := make(map[string]any, len(t.taxonomies))
	for name, tax := range t.taxonomies {
		types := make([]any, len(tax.ObjectTypes))
		for i, ot := range tax.ObjectTypes {
			types[i] = ot
		}
		taxes[name] = map[string]any{
			"hierarchical": tax.Hierarchical,
			"object_types": types,
		}
	}
	var searchable []any
	for _, name := range sortedKeys(t.postTypes) {
		if !t.postTypes[name].ExcludeFromSearch {
			searchable = append(searchable, name)
		}
	}
	return map[string]any{
		"taxonomies": taxes,
		"searchable": searchable,
	}
}

func validateTypeName(name string, max int) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case len(name) > max:
		return fmt.Errorf("name %q is longer than %d characters", name, max)
	case strings.ToLower(name) != name:
		return fmt.Errorf("name %q must be lowercase", name)
	case strings.ContainsAny(name, " \t\n/"):
		return fmt.Errorf("name %q contains invalid characters", name)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for _, s := range out {
		if s == "" || (n > 0 && s == out[n-1]) {
			continue
		}
		out[n] = s
		n++
	}
	if n == 0 {
		return nil
	}
	return out[:n]
}

package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Post query field modes.
const (
	FieldsAll       = "all"
	FieldsIDs       = "ids"
	FieldsIDParent  = "id=>parent"
	FieldsNames     = "names"
	FieldsCount     = "count"
	FieldsWithObjID = "all_with_object_id"
	FieldsTTIDs     = "tt_ids"
	FieldsSlugs     = "slugs"
)

// MetaClause filters posts by a metadata value.
type MetaClause struct {
	Key     string   `mapstructure:"key" json:"key"`
	Value   []string `mapstructure:"value" json:"value,omitempty"`
	Compare string   `mapstructure:"compare" json:"compare,omitempty"`
	// Type NUMERIC compares values as numbers instead of text.
	Type string `mapstructure:"type" json:"type,omitempty"`
}

// TaxClause filters posts by attached terms.
type TaxClause struct {
	Taxonomy string   `mapstructure:"taxonomy" json:"taxonomy"`
	Field    string   `mapstructure:"field" json:"field,omitempty"`
	Terms    []string `mapstructure:"terms" json:"terms"`
	Operator string   `mapstructure:"operator" json:"operator,omitempty"`
	// IncludeChildren matches descendants in hierarchical taxonomies.
	// Defaults to true.
	IncludeChildren *bool `mapstructure:"include_children" json:"include_children,omitempty"`
}

// PostArgs are the arguments of a post query.
type PostArgs struct {
	PostType   []string     `mapstructure:"post_type" json:"post_type,omitempty"`
	PostStatus []string     `mapstructure:"post_status" json:"post_status,omitempty"`
	Author     []int64      `mapstructure:"author" json:"author,omitempty"`
	Name       string       `mapstructure:"name" json:"name,omitempty"`
	IDs        []int64      `mapstructure:"post__in" json:"post__in,omitempty"`
	ExcludeIDs []int64      `mapstructure:"post__not_in" json:"post__not_in,omitempty"`
	Search     string       `mapstructure:"s" json:"s,omitempty"`
	MetaQuery  []MetaClause `mapstructure:"meta_query" json:"meta_query,omitempty"`
	TaxQuery   []TaxClause  `mapstructure:"tax_query" json:"tax_query,omitempty"`
	OrderBy    []string     `mapstructure:"orderby" json:"orderby,omitempty"`
	Order      string       `mapstructure:"order" json:"order,omitempty"`

	// PostsPerPage limits the page size; -1 returns every match and 0
	// means the default of 10.
	PostsPerPage int    `mapstructure:"posts_per_page" json:"posts_per_page,omitempty"`
	Paged        int    `mapstructure:"paged" json:"paged,omitempty"`
	Offset       int    `mapstructure:"offset" json:"offset,omitempty"`
	Fields       string `mapstructure:"fields" json:"fields,omitempty"`
	NoFoundRows  bool   `mapstructure:"no_found_rows" json:"no_found_rows,omitempty"`

	CacheResults        *bool `mapstructure:"cache_results" json:"cache_results,omitempty"`
	UpdatePostMetaCache *bool `mapstructure:"update_post_meta_cache" json:"update_post_meta_cache,omitempty"`
	UpdatePostTermCache *bool `mapstructure:"update_post_term_cache" json:"update_post_term_cache,omitempty"`
	SuppressFilters     bool  `mapstructure:"suppress_filters" json:"suppress_filters,omitempty"`
}

// TermArgs are the arguments of a term query.
type TermArgs struct {
	Taxonomy  []string `mapstructure:"taxonomy" json:"taxonomy,omitempty"`
	ObjectIDs []int64  `mapstructure:"object_ids" json:"object_ids,omitempty"`
	Include   []int64  `mapstructure:"include" json:"include,omitempty"`
	Exclude   []int64  `mapstructure:"exclude" json:"exclude,omitempty"`
	Slug      []string `mapstructure:"slug" json:"slug,omitempty"`
	Name      []string `mapstructure:"name" json:"name,omitempty"`
	Search    string   `mapstructure:"search" json:"search,omitempty"`
	HideEmpty *bool    `mapstructure:"hide_empty" json:"hide_empty,omitempty"`
	Parent    *int64   `mapstructure:"parent" json:"parent,omitempty"`
	OrderBy   string   `mapstructure:"orderby" json:"orderby,omitempty"`
	Order     string   `mapstructure:"order" json:"order,omitempty"`
	// Number limits the result count; 0 returns every match.
	Number int    `mapstructure:"number" json:"number,omitempty"`
	Offset int    `mapstructure:"offset" json:"offset,omitempty"`
	Fields string `mapstructure:"fields" json:"fields,omitempty"`

	CacheResults        *bool `mapstructure:"cache_results" json:"cache_results,omitempty"`
	UpdateTermMetaCache *bool `mapstructure:"update_term_meta_cache" json:"update_term_meta_cache,omitempty"`
	SuppressFilters     bool  `mapstructure:"suppress_filters" json:"suppress_filters,omitempty"`
}

// DecodePostArgs decodes loosely typed query variables. Scalars decode
// into single-element lists and comma-separated strings into lists.
// Unknown keys are ignored.
func DecodePostArgs(vars map[string]any) (PostArgs, error) {
	var args PostArgs
	if err := decode(vars, &args); err != nil {
		return PostArgs{}, fmt.Errorf("query: decode post args: %w", err)
	}
	return args, nil
}

// DecodeTermArgs is DecodePostArgs for term queries.
func DecodeTermArgs(vars map[string]any) (TermArgs, error) {
	var args TermArgs
	if err := decode(vars, &args); err != nil {
		return TermArgs{}, fmt.Errorf("query: decode term args: %w", err)
	}
	return args, nil
}

func decode(vars map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       argsDecodeHooks(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(vars)
}

// argsDecodeHooks combines the hooks that fold query-string shapes into
// the argument structs.
func argsDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		listDecodeHook(),
		clauseListDecodeHook(),
	)
}

// listDecodeHook splits comma-separated strings into string and integer
// lists, e.g. post_status=publish,draft.
func listDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}
		switch to.Elem().Kind() {
		case reflect.String, reflect.Int, reflect.Int64:
		default:
			return data, nil
		}
		s, _ := data.(string)
		var out []interface{}
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out, nil
	}
}

// clauseListDecodeHook accepts a single meta or tax clause given as an
// object where a list of clauses is expected.
func clauseListDecodeHook() mapstructure.DecodeHookFunc {
	metaType := reflect.TypeOf([]MetaClause(nil))
	taxType := reflect.TypeOf([]TaxClause(nil))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if (to != metaType && to != taxType) || from.Kind() != reflect.Map {
			return data, nil
		}
		return []interface{}{data}, nil
	}
}

package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidArgs is returned for query arguments that cannot be executed.
var ErrInvalidArgs = errors.New("query: invalid arguments")

const defaultPostsPerPage = 10

// postOrderColumns maps orderby keys to sortable columns.
var postOrderColumns = map[string]string{
	"date":          "posts.post_date_gmt",
	"modified":      "posts.post_modified_gmt",
	"title":         "posts.post_title",
	"name":          "posts.post_name",
	"id":            "posts.id",
	"author":        "posts.post_author",
	"parent":        "posts.post_parent",
	"menu_order":    "posts.menu_order",
	"comment_count": "posts.comment_count",
	"type":          "posts.post_type",
}

var termOrderColumns = map[string]string{
	"name":        "t.name",
	"slug":        "t.slug",
	"term_group":  "t.term_group",
	"term_id":     "t.term_id",
	"description": "tt.description",
	"parent":      "tt.parent",
	"count":       "tt.count",
}

// anyStatuses are the statuses post_status=any expands to.
var anyStatuses = []string{"draft", "future", "inherit", "pending", "private", "publish"}

var metaCompares = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"LIKE": true, "NOT LIKE": true, "IN": true, "NOT IN": true,
	"EXISTS": true, "NOT EXISTS": true,
}

var taxFields = map[string]bool{"term_id": true, "slug": true, "name": true, "term_taxonomy_id": true}

var taxOperators = map[string]bool{"IN": true, "NOT IN": true, "AND": true, "EXISTS": true, "NOT EXISTS": true}

// Normalize returns args in canonical form. Argument shapes that select
// the same rows normalize to equal values.
func Normalize(args PostArgs, types *Types) (PostArgs, error) {
	if types == nil {
		types = NewTypes()
	}
	out := args

	out.PostType = sortedUnique(lowerAll(args.PostType))
	switch {
	case len(out.PostType) == 0:
		out.PostType = []string{"post"}
	case slices.Contains(out.PostType, "any"):
		out.PostType = types.SearchableTypes()
	}

	out.PostStatus = sortedUnique(lowerAll(args.PostStatus))
	switch {
	case len(out.PostStatus) == 0:
		out.PostStatus = []string{"publish"}
	case slices.Contains(out.PostStatus, "any"):
		out.PostStatus = append([]string(nil), anyStatuses...)
	}

	out.Author = sortedUniqueIDs(args.Author)
	out.ExcludeIDs = sortedUniqueIDs(args.ExcludeIDs)
	out.Name = strings.TrimSpace(args.Name)
	out.Search = strings.Join(strings.Fields(args.Search), " ")

	out.OrderBy = normalizePostOrderBy(args.OrderBy)
	if slices.Contains(out.OrderBy, "post__in") {
		out.IDs = stableUniqueIDs(args.IDs)
	} else {
		out.IDs = sortedUniqueIDs(args.IDs)
	}
	out.Order = normalizeOrder(args.Order, "DESC")

	var err error
	if out.MetaQuery, err = normalizeMetaQuery(args.MetaQuery); err != nil {
		return PostArgs{}, err
	}
	if out.TaxQuery, err = normalizeTaxQuery(args.TaxQuery, types); err != nil {
		return PostArgs{}, err
	}

	switch {
	case args.PostsPerPage == 0:
		out.PostsPerPage = defaultPostsPerPage
	case args.PostsPerPage < 0:
		out.PostsPerPage = -1
	}
	if out.Paged < 1 {
		out.Paged = 1
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	if out.PostsPerPage == -1 {
		out.Paged, out.Offset = 1, 0
		out.NoFoundRows = true
	}

	switch strings.ToLower(args.Fields) {
	case FieldsIDs:
		out.Fields = FieldsIDs
	case FieldsIDParent:
		out.Fields = FieldsIDParent
	default:
		out.Fields = FieldsAll
	}

	out.CacheResults = boolDefault(args.CacheResults, true)
	out.UpdatePostMetaCache = boolDefault(args.UpdatePostMetaCache, true)
	out.UpdatePostTermCache = boolDefault(args.UpdatePostTermCache, true)
	return out, nil
}

func normalizePostOrderBy(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, key := range strings.Fields(entry) {
			key = strings.ToLower(key)
			if key == "post_date" || key == "post_title" || key == "post_name" {
				key = strings.TrimPrefix(key, "post_")
			}
			_, column := postOrderColumns[key]
			if !column && key != "rand" && key != "none" && key != "post__in" {
				continue
			}
			if !slices.Contains(out, key) {
				out = append(out, key)
			}
		}
	}
	if len(out) == 0 {
		return []string{"date"}
	}
	if slices.Contains(out, "none") {
		return []string{"none"}
	}
	return out
}

func normalizeMetaQuery(in []MetaClause) ([]MetaClause, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]MetaClause, 0, len(in))
	for _, c := range in {
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" {
			return nil, fmt.Errorf("%w: meta_query clause without key", ErrInvalidArgs)
		}
		c.Compare = strings.ToUpper(strings.TrimSpace(c.Compare))
		if c.Compare == "" {
			c.Compare = "="
			if len(c.Value) > 1 {
				c.Compare = "IN"
			}
		}
		switch c.Type = strings.ToUpper(strings.TrimSpace(c.Type)); c.Type {
		case "", "CHAR":
			c.Type = ""
		case "NUMERIC", "SIGNED", "DECIMAL":
			c.Type = "NUMERIC"
		default:
			return nil, fmt.Errorf("%w: meta_query type %q", ErrInvalidArgs, c.Type)
		}
		if !metaCompares[c.Compare] {
			return nil, fmt.Errorf("%w: meta_query compare %q", ErrInvalidArgs, c.Compare)
		}
		switch c.Compare {
		case "EXISTS", "NOT EXISTS":
			c.Value = nil
		case "IN", "NOT IN":
			c.Value = sortedUnique(c.Value)
			if len(c.Value) == 0 {
				return nil, fmt.Errorf("%w: meta_query %s needs values", ErrInvalidArgs, c.Compare)
			}
		default:
			if len(c.Value) != 1 {
				return nil, fmt.Errorf("%w: meta_query %s needs one value", ErrInvalidArgs, c.Compare)
			}
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b MetaClause) int {
		return strings.Compare(metaSortKey(a), metaSortKey(b))
	})
	return out, nil
}

func normalizeTaxQuery(in []TaxClause, types *Types) ([]TaxClause, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]TaxClause, 0, len(in))
	for _, c := range in {
		tax, ok := types.Taxonomy(c.Taxonomy)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTaxonomy, c.Taxonomy)
		}
		c.Field = strings.ToLower(strings.TrimSpace(c.Field))
		switch c.Field {
		case "":
			c.Field = "term_id"
		case "id":
			c.Field = "term_id"
		}
		if !taxFields[c.Field] {
			return nil, fmt.Errorf("%w: tax_query field %q", ErrInvalidArgs, c.Field)
		}
		c.Operator = strings.ToUpper(strings.TrimSpace(c.Operator))
		if c.Operator == "" {
			c.Operator = "IN"
		}
		if !taxOperators[c.Operator] {
			return nil, fmt.Errorf("%w: tax_query operator %q", ErrInvalidArgs, c.Operator)
		}
		c.Terms = sortedUnique(c.Terms)
		if len(c.Terms) == 0 && c.Operator != "EXISTS" && c.Operator != "NOT EXISTS" {
			return nil, fmt.Errorf("%w: tax_query on %s needs terms", ErrInvalidArgs, c.Taxonomy)
		}
		children := tax.Hierarchical && (c.IncludeChildren == nil || *c.IncludeChildren)
		c.IncludeChildren = &children
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b TaxClause) int {
		return strings.Compare(taxSortKey(a), taxSortKey(b))
	})
	return out, nil
}

func metaSortKey(c MetaClause) string {
	return c.Key + "\x00" + c.Compare + "\x00" + c.Type + "\x00" + strings.Join(c.Value, "\x00")
}

func taxSortKey(c TaxClause) string {
	return c.Taxonomy + "\x00" + c.Field + "\x00" + c.Operator + "\x00" + strings.Join(c.Terms, "\x00")
}

// postVars returns normalized args as the map hashed into cache keys.
// Cache-control flags appear only when they differ from their default.
func postVars(a PostArgs) map[string]any {
	vars := map[string]any{
		"post_type":      a.PostType,
		"post_status":    a.PostStatus,
		"author":         a.Author,
		"name":           a.Name,
		"post__in":       a.IDs,
		"post__not_in":   a.ExcludeIDs,
		"s":              a.Search,
		"meta_query":     a.MetaQuery,
		"tax_query":      a.TaxQuery,
		"orderby":        a.OrderBy,
		"order":          a.Order,
		"posts_per_page": a.PostsPerPage,
		"paged":          a.Paged,
		"offset":         a.Offset,
		"fields":         a.Fields,
		"no_found_rows":  a.NoFoundRows,
	}
	if a.SuppressFilters {
		vars["suppress_filters"] = true
	}
	if !boolValue(a.UpdatePostMetaCache, true) {
		vars["update_post_meta_cache"] = false
	}
	if !boolValue(a.UpdatePostTermCache, true) {
		vars["update_post_term_cache"] = false
	}
	return vars
}

// NormalizeTerms returns term query args in canonical form.
func NormalizeTerms(args TermArgs, types *Types) (TermArgs, error) {
	if types == nil {
		types = NewTypes()
	}
	out := args

	out.Taxonomy = sortedUnique(args.Taxonomy)
	for _, name := range out.Taxonomy {
		if _, ok := types.Taxonomy(name); !ok {
			return TermArgs{}, fmt.Errorf("%w: %q", ErrInvalidTaxonomy, name)
		}
	}
	if len(out.Taxonomy) == 0 {
		out.Taxonomy = types.TaxonomyNames()
	}

	out.OrderBy = strings.ToLower(strings.TrimSpace(args.OrderBy))
	switch out.OrderBy {
	case "", "term_name":
		out.OrderBy = "name"
	case "id":
		out.OrderBy = "term_id"
	}
	if _, ok := termOrderColumns[out.OrderBy]; !ok && out.OrderBy != "include" && out.OrderBy != "none" {
		out.OrderBy = "name"
	}
	out.Order = normalizeOrder(args.Order, "ASC")

	out.ObjectIDs = sortedUniqueIDs(args.ObjectIDs)
	if out.OrderBy == "include" {
		out.Include = stableUniqueIDs(args.Include)
	} else {
		out.Include = sortedUniqueIDs(args.Include)
	}
	out.Exclude = sortedUniqueIDs(args.Exclude)
	out.Slug = sortedUnique(args.Slug)
	out.Name = sortedUnique(args.Name)
	out.Search = strings.Join(strings.Fields(args.Search), " ")
	out.HideEmpty = boolDefault(args.HideEmpty, true)

	if out.Number < 0 {
		out.Number = 0
	}
	if out.Offset < 0 {
		out.Offset = 0
	}

	switch f := strings.ToLower(args.Fields); f {
	case FieldsIDs, FieldsNames, FieldsCount, FieldsWithObjID, FieldsIDParent, FieldsTTIDs, FieldsSlugs:
		out.Fields = f
	default:
		out.Fields = FieldsAll
	}
	if out.Fields == FieldsWithObjID && len(out.ObjectIDs) == 0 {
		out.Fields = FieldsAll
	}

	out.CacheResults = boolDefault(args.CacheResults, true)
	out.UpdateTermMetaCache = boolDefault(args.UpdateTermMetaCache, true)
	return out, nil
}

// termVars returns normalized term args as the map hashed into cache
// keys. Field modes that share a result set collapse to "all".
func termVars(a TermArgs) map[string]any {
	fields := FieldsAll
	if a.Fields == FieldsCount || a.Fields == FieldsWithObjID {
		fields = a.Fields
	}
	vars := map[string]any{
		"taxonomy":   a.Taxonomy,
		"object_ids": a.ObjectIDs,
		"include":    a.Include,
		"exclude":    a.Exclude,
		"slug":       a.Slug,
		"name":       a.Name,
		"search":     a.Search,
		"hide_empty": boolValue(a.HideEmpty, true),
		"orderby":    a.OrderBy,
		"order":      a.Order,
		"number":     a.Number,
		"offset":     a.Offset,
		"fields":     fields,
	}
	if a.Parent != nil {
		vars["parent"] = *a.Parent
	}
	if a.SuppressFilters {
		vars["suppress_filters"] = true
	}
	if !boolValue(a.UpdateTermMetaCache, true) {
		vars["update_term_meta_cache"] = false
	}
	return vars
}

func normalizeOrder(order, def string) string {
	switch o := strings.ToUpper(strings.TrimSpace(order)); o {
	case "ASC", "DESC":
		return o
	default:
		return def
	}
}

func boolDefault(b *bool, def bool) *bool {
	v := boolValue(b, def)
	return &v
}

func boolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func sortedUniqueIDs(in []int64) []int64 {
	out := stableUniqueIDs(in)
	slices.Sort(out)
	return out
}

// stableUniqueIDs drops non-positive and repeated IDs, keeping order.
func stableUniqueIDs(in []int64) []int64 {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(in))
	var out []int64
	for _, id := range in {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/query"
)

func TestDecodePostArgs_Shapes(t *testing.T) {
	args, err := query.DecodePostArgs(map[string]any{
		"post_type":      "page",
		"post_status":    "publish, draft",
		"author":         "3,1",
		"post__in":       []any{5, "7"},
		"posts_per_page": "5",
		"orderby":        "title date",
		"meta_query":     map[string]any{"key": "city", "value": "New York"},
		"tax_query": []any{
			map[string]any{"taxonomy": "category", "terms": "1,2", "include_children": false},
		},
		"unknown_key": true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"page"}, args.PostType)
	assert.Equal(t, []string{"publish", "draft"}, args.PostStatus)
	assert.Equal(t, []int64{3, 1}, args.Author)
	assert.Equal(t, []int64{5, 7}, args.IDs)
	assert.Equal(t, 5, args.PostsPerPage)
	assert.Equal(t, []string{"title date"}, args.OrderBy)
	require.Len(t, args.MetaQuery, 1)
	assert.Equal(t, []string{"New York"}, args.MetaQuery[0].Value)
	require.Len(t, args.TaxQuery, 1)
	assert.Equal(t, []string{"1", "2"}, args.TaxQuery[0].Terms)
	require.NotNil(t, args.TaxQuery[0].IncludeChildren)
	assert.False(t, *args.TaxQuery[0].IncludeChildren)
}

func TestDecodeTermArgs_Shapes(t *testing.T) {
	args, err := query.DecodeTermArgs(map[string]any{
		"taxonomy":   "category,post_tag",
		"object_ids": 4,
		"hide_empty": "0",
		"parent":     0,
		"number":     "3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "post_tag"}, args.Taxonomy)
	assert.Equal(t, []int64{4}, args.ObjectIDs)
	require.NotNil(t, args.HideEmpty)
	assert.False(t, *args.HideEmpty)
	require.NotNil(t, args.Parent)
	assert.Zero(t, *args.Parent)
	assert.Equal(t, 3, args.Number)
}

func TestNormalize_Defaults(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"post"}, norm.PostType)
	assert.Equal(t, []string{"publish"}, norm.PostStatus)
	assert.Equal(t, []string{"date"}, norm.OrderBy)
	assert.Equal(t, "DESC", norm.Order)
	assert.Equal(t, 10, norm.PostsPerPage)
	assert.Equal(t, 1, norm.Paged)
	assert.Equal(t, query.FieldsAll, norm.Fields)
	require.NotNil(t, norm.CacheResults)
	assert.True(t, *norm.CacheResults)
	require.NotNil(t, norm.UpdatePostMetaCache)
	assert.True(t, *norm.UpdatePostMetaCache)
}

func TestNormalize_Any(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{PostType: []string{"any"}, PostStatus: []string{"ANY"}}, query.NewTypes())
	require.NoError(t, err)
	assert.Equal(t, []string{"attachment", "page", "post"}, norm.PostType)
	assert.Contains(t, norm.PostStatus, "draft")
	assert.Contains(t, norm.PostStatus, "publish")
}

func TestNormalize_Lists(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{
		PostType:   []string{"page", "Post", "page"},
		Author:     []int64{3, 1, 3},
		IDs:        []int64{9, 2, 9, -1},
		OrderBy:    []string{"post_title bogus", "date"},
		Order:      "asc",
		Search:     "  hello   world ",
		Fields:     "IDS",
		PostStatus: []string{"draft", ""},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"page", "post"}, norm.PostType)
	assert.Equal(t, []int64{1, 3}, norm.Author)
	assert.Equal(t, []int64{2, 9}, norm.IDs)
	assert.Equal(t, []string{"title", "date"}, norm.OrderBy)
	assert.Equal(t, "ASC", norm.Order)
	assert.Equal(t, "hello world", norm.Search)
	assert.Equal(t, query.FieldsIDs, norm.Fields)
	assert.Equal(t, []string{"draft"}, norm.PostStatus)
}

func TestNormalize_OrderByInclusionKeepsIDOrder(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{IDs: []int64{9, 2, 9}, OrderBy: []string{"post__in"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 2}, norm.IDs)

	norm, err = query.Normalize(query.PostArgs{OrderBy: []string{"title none"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"none"}, norm.OrderBy)
}

func TestNormalize_Unlimited(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{PostsPerPage: -5, Paged: 3, Offset: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, norm.PostsPerPage)
	assert.Equal(t, 1, norm.Paged)
	assert.Zero(t, norm.Offset)
	assert.True(t, norm.NoFoundRows)
}

func TestNormalize_MetaQuery(t *testing.T) {
	norm, err := query.Normalize(query.PostArgs{MetaQuery: []query.MetaClause{
		{Key: "size", Value: []string{"b", "a", "b"}},
		{Key: "color", Value: []string{"red"}, Type: "signed"},
		{Key: "featured", Compare: "exists", Value: []string{"ignored"}},
	}}, nil)
	require.NoError(t, err)
	require.Len(t, norm.MetaQuery, 3)

	assert.Equal(t, query.MetaClause{Key: "color", Value: []string{"red"}, Compare: "=", Type: "NUMERIC"}, norm.MetaQuery[0])
	assert.Equal(t, query.MetaClause{Key: "featured", Compare: "EXISTS"}, norm.MetaQuery[1])
	assert.Equal(t, query.MetaClause{Key: "size", Value: []string{"a", "b"}, Compare: "IN"}, norm.MetaQuery[2])

	tests := []struct {
		name   string
		clause query.MetaClause
	}{
		{name: "missing key", clause: query.MetaClause{Value: []string{"x"}}},
		{name: "bad compare", clause: query.MetaClause{Key: "k", Value: []string{"x"}, Compare: "REGEXP"}},
		{name: "bad type", clause: query.MetaClause{Key: "k", Value: []string{"x"}, Type: "DATE"}},
		{name: "in without values", clause: query.MetaClause{Key: "k", Compare: "IN"}},
		{name: "equals two values", clause: query.MetaClause{Key: "k", Value: []string{"a", "b"}, Compare: "="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.Normalize(query.PostArgs{MetaQuery: []query.MetaClause{tt.clause}}, nil)
			assert.ErrorIs(t, err, query.ErrInvalidArgs)
		})
	}
}

func TestNormalize_TaxQuery(t *testing.T) {
	no := false
	norm, err := query.Normalize(query.PostArgs{TaxQuery: []query.TaxClause{
		{Taxonomy: "post_tag", Terms: []string{"b", "a"}, Field: "slug"},
		{Taxonomy: "category", Terms: []string{"3"}},
		{Taxonomy: "category", Terms: []string{"4"}, IncludeChildren: &no, Operator: "not in"},
	}}, nil)
	require.NoError(t, err)
	require.Len(t, norm.TaxQuery, 3)

	assert.Equal(t, "category", norm.TaxQuery[0].Taxonomy)
	assert.Equal(t, "term_id", norm.TaxQuery[0].Field)
	assert.Equal(t, "IN", norm.TaxQuery[0].Operator)
	assert.True(t, *norm.TaxQuery[0].IncludeChildren)

	assert.Equal(t, "NOT IN", norm.TaxQuery[1].Operator)
	assert.False(t, *norm.TaxQuery[1].IncludeChildren)

	// post_tag is flat, so children never apply.
	assert.Equal(t, []string{"a", "b"}, norm.TaxQuery[2].Terms)
	assert.False(t, *norm.TaxQuery[2].IncludeChildren)

	_, err = query.Normalize(query.PostArgs{TaxQuery: []query.TaxClause{{Taxonomy: "genre", Terms: []string{"1"}}}}, nil)
	assert.ErrorIs(t, err, query.ErrInvalidTaxonomy)

	_, err = query.Normalize(query.PostArgs{TaxQuery: []query.TaxClause{{Taxonomy: "category"}}}, nil)
	assert.ErrorIs(t, err, query.ErrInvalidArgs)

	_, err = query.Normalize(query.PostArgs{TaxQuery: []query.TaxClause{{Taxonomy: "category", Operator: "exists"}}}, nil)
	assert.NoError(t, err)
}

func TestNormalizeTerms(t *testing.T) {
	norm, err := query.NormalizeTerms(query.TermArgs{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "nav_menu", "post_tag"}, norm.Taxonomy)
	assert.Equal(t, "name", norm.OrderBy)
	assert.Equal(t, "ASC", norm.Order)
	require.NotNil(t, norm.HideEmpty)
	assert.True(t, *norm.HideEmpty)

	norm, err = query.NormalizeTerms(query.TermArgs{OrderBy: "id", Order: "desc", Fields: query.FieldsWithObjID}, nil)
	require.NoError(t, err)
	assert.Equal(t, "term_id", norm.OrderBy)
	assert.Equal(t, "DESC", norm.Order)
	assert.Equal(t, query.FieldsAll, norm.Fields, "all_with_object_id needs object ids")

	norm, err = query.NormalizeTerms(query.TermArgs{Include: []int64{5, 2, 5}, OrderBy: "include"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2}, norm.Include)

	_, err = query.NormalizeTerms(query.TermArgs{Taxonomy: []string{"genre"}}, nil)
	assert.ErrorIs(t, err, query.ErrInvalidTaxonomy)
}

func TestTypes_Registration(t *testing.T) {
	types := query.NewTypes()

	require.NoError(t, types.RegisterPostType(query.PostType{Name: "book", Public: true}))
	assert.Contains(t, types.SearchableTypes(), "book")
	assert.True(t, types.UnregisterPostType("book"))
	assert.False(t, types.UnregisterPostType("book"))

	require.NoError(t, types.RegisterTaxonomy(query.Taxonomy{Name: "genre", ObjectTypes: []string{"book", "book"}}))
	tax, ok := types.Taxonomy("genre")
	require.True(t, ok)
	assert.Equal(t, []string{"book"}, tax.ObjectTypes)
	assert.Contains(t, types.TaxonomyNames(), "genre")

	for _, name := range []string{"", "Book", "has space", "a_name_that_is_much_too_long"} {
		assert.ErrorIs(t, types.RegisterPostType(query.PostType{Name: name}), query.ErrInvalidPostType, name)
	}
	assert.ErrorIs(t, types.RegisterTaxonomy(query.Taxonomy{Name: "a/b"}), query.ErrInvalidTaxonomy)

	_, ok = types.PostType("revision")
	assert.True(t, ok)
	assert.NotContains(t, types.SearchableTypes(), "revision")
}

package query_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/store"
)

type fixture struct {
	store *store.Store
	cache *cache.ObjectCache
	posts *query.Posts
	hooks *hooks.Registry
}

func newFixture(t *testing.T, opts ...query.Option) *fixture {
	t.Helper()
	reg := hooks.NewRegistry()
	st, err := store.Open(context.Background(), store.Config{Path: store.MemoryPath}, store.WithHooks(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	oc := cache.NewObjectCache(nil, cache.DefaultPolicy())
	query.NewInvalidator(oc, nil).Subscribe(reg)
	return &fixture{store: st, cache: oc, posts: query.NewPosts(st, oc, opts...), hooks: reg}
}

var baseDate = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (f *fixture) post(t *testing.T, p store.Post) int64 {
	t.Helper()
	if p.Status == "" {
		p.Status = "publish"
	}
	id, err := f.store.InsertPost(context.Background(), &p)
	require.NoError(t, err)
	return id
}

func (f *fixture) term(t *testing.T, taxonomy, name string, parent int64) int64 {
	t.Helper()
	id, err := f.store.InsertTerm(context.Background(), &store.Term{Name: name, Taxonomy: taxonomy, Parent: parent})
	require.NoError(t, err)
	return id
}

func titles(posts []*store.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestPostsQuery_DefaultsAndCaching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.post(t, store.Post{Title: "Old", Date: baseDate})
	f.post(t, store.Post{Title: "New", Date: baseDate.Add(time.Hour)})
	f.post(t, store.Post{Title: "Draft", Status: "draft", Date: baseDate})
	f.post(t, store.Post{Title: "A page", Type: "page", Date: baseDate})

	res, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Old"}, titles(res.Posts))
	assert.EqualValues(t, 2, res.FoundRows)
	assert.Equal(t, 1, res.MaxPages)
	assert.False(t, res.CacheHit)

	again, err := f.posts.Query(ctx, query.PostArgs{PostType: []string{"post"}})
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, res.CacheKey, again.CacheKey)
	assert.Equal(t, res.IDs, again.IDs)
}

func TestPostsQuery_InvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.post(t, store.Post{Title: "First", Date: baseDate})
	res, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)

	id := f.post(t, store.Post{Title: "Second", Date: baseDate.Add(time.Minute)})
	res2, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.False(t, res2.CacheHit)
	assert.NotEqual(t, res.CacheKey, res2.CacheKey)
	assert.Equal(t, []string{"Second", "First"}, titles(res2.Posts))

	post, err := f.store.GetPost(ctx, id)
	require.NoError(t, err)
	post.Title = "Second, edited"
	require.NoError(t, f.store.UpdatePost(ctx, post))

	res3, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.Equal(t, "Second, edited", res3.Posts[0].Title)

	require.NoError(t, f.store.DeletePost(ctx, id))
	res4, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"First"}, titles(res4.Posts))
}

func TestPostsQuery_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.post(t, store.Post{Title: string(rune('a' + i)), Date: baseDate.Add(time.Duration(i) * time.Hour)})
	}

	res, err := f.posts.QueryVars(ctx, map[string]any{"posts_per_page": 2, "paged": 2, "orderby": "title", "order": "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, titles(res.Posts))
	assert.EqualValues(t, 5, res.FoundRows)
	assert.Equal(t, 3, res.MaxPages)

	res, err = f.posts.QueryVars(ctx, map[string]any{"posts_per_page": -1, "orderby": "title", "order": "ASC"})
	require.NoError(t, err)
	assert.Len(t, res.Posts, 5)
	assert.EqualValues(t, 5, res.FoundRows)

	res, err = f.posts.QueryVars(ctx, map[string]any{"posts_per_page": 2, "offset": 4, "orderby": "title", "order": "ASC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, titles(res.Posts))
}

func TestPostsQuery_Fields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := f.post(t, store.Post{Title: "Parent", Type: "page", Date: baseDate})
	child := f.post(t, store.Post{Title: "Child", Type: "page", Parent: parent, Date: baseDate.Add(time.Hour)})

	res, err := f.posts.QueryVars(ctx, map[string]any{"post_type": "page", "fields": "ids"})
	require.NoError(t, err)
	assert.Equal(t, []int64{child, parent}, res.IDs)
	assert.Nil(t, res.Posts)

	res, err = f.posts.QueryVars(ctx, map[string]any{"post_type": "page", "fields": "id=>parent"})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{child: parent, parent: 0}, res.Parents)
}

func TestPostsQuery_OrderByInclusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.post(t, store.Post{Title: "a", Date: baseDate})
	b := f.post(t, store.Post{Title: "b", Date: baseDate})
	c := f.post(t, store.Post{Title: "c", Date: baseDate})

	res, err := f.posts.Query(ctx, query.PostArgs{IDs: []int64{c, a, b}, OrderBy: []string{"post__in"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(res.Posts))
}

func TestPostsQuery_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.post(t, store.Post{Title: "Save 50% today", Date: baseDate})
	f.post(t, store.Post{Title: "Save 500 today", Date: baseDate})
	f.post(t, store.Post{Title: "Nothing", Content: "deep 50% inside", Date: baseDate})

	res, err := f.posts.Query(ctx, query.PostArgs{Search: "50%", OrderBy: []string{"title"}, Order: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nothing", "Save 50% today"}, titles(res.Posts))
	assert.NotContains(t, res.CacheKey, store.PlaceholderEscape())
}

func TestPostsQuery_MetaQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	red := f.post(t, store.Post{Title: "red", Date: baseDate})
	blue := f.post(t, store.Post{Title: "blue", Date: baseDate})
	f.post(t, store.Post{Title: "none", Date: baseDate})
	require.NoError(t, f.store.SetPostMeta(ctx, red, "color", "red"))
	require.NoError(t, f.store.SetPostMeta(ctx, red, "rank", "10"))
	require.NoError(t, f.store.SetPostMeta(ctx, blue, "color", "blue"))
	require.NoError(t, f.store.SetPostMeta(ctx, blue, "rank", "9"))

	byTitle := map[string]any{"orderby": "title", "order": "ASC"}
	with := func(extra map[string]any) map[string]any {
		out := map[string]any{}
		for k, v := range byTitle {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	res, err := f.posts.QueryVars(ctx, with(map[string]any{"meta_query": map[string]any{"key": "color", "value": "red"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, titles(res.Posts))

	res, err = f.posts.QueryVars(ctx, with(map[string]any{"meta_query": map[string]any{"key": "color", "compare": "EXISTS"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "red"}, titles(res.Posts))

	res, err = f.posts.QueryVars(ctx, with(map[string]any{"meta_query": map[string]any{"key": "color", "compare": "NOT EXISTS"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"none"}, titles(res.Posts))

	res, err = f.posts.QueryVars(ctx, with(map[string]any{"meta_query": map[string]any{
		"key": "rank", "value": "9", "compare": ">", "type": "NUMERIC",
	}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, titles(res.Posts))

	// Writing meta invalidates cached results.
	require.NoError(t, f.store.SetPostMeta(ctx, blue, "color", "red"))
	res, err = f.posts.QueryVars(ctx, with(map[string]any{"meta_query": map[string]any{"key": "color", "value": "red"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "red"}, titles(res.Posts))

	_, err = f.posts.QueryVars(ctx, map[string]any{"meta_query": map[string]any{"key": "color", "compare": "BETWEENISH"}})
	assert.ErrorIs(t, err, query.ErrInvalidArgs)
}

func TestPostsQuery_TaxQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	news := f.term(t, "category", "News", 0)
	local := f.term(t, "category", "Local", news)
	sport := f.term(t, "category", "Sport", 0)
	tag := f.term(t, "post_tag", "Featured", 0)

	a := f.post(t, store.Post{Title: "a", Date: baseDate})
	b := f.post(t, store.Post{Title: "b", Date: baseDate})
	c := f.post(t, store.Post{Title: "c", Date: baseDate})
	require.NoError(t, f.store.SetObjectTerms(ctx, a, "category", []int64{news}))
	require.NoError(t, f.store.SetObjectTerms(ctx, b, "category", []int64{local}))
	require.NoError(t, f.store.SetObjectTerms(ctx, c, "category", []int64{sport}))
	require.NoError(t, f.store.SetObjectTerms(ctx, a, "post_tag", []int64{tag}))
	require.NoError(t, f.store.SetObjectTerms(ctx, c, "post_tag", []int64{tag}))

	run := func(clause map[string]any) []string {
		t.Helper()
		res, err := f.posts.QueryVars(ctx, map[string]any{"tax_query": clause, "orderby": "title", "order": "ASC"})
		require.NoError(t, err)
		return titles(res.Posts)
	}

	assert.Equal(t, []string{"a", "b"}, run(map[string]any{"taxonomy": "category", "terms": "news", "field": "slug"}))
	assert.Equal(t, []string{"a"}, run(map[string]any{"taxonomy": "category", "terms": "news", "field": "slug", "include_children": false}))
	assert.Equal(t, []string{"b", "c"}, run(map[string]any{"taxonomy": "category", "terms": []any{news}, "operator": "NOT IN", "include_children": false}))
	assert.Equal(t, []string{"a", "c"}, run(map[string]any{"taxonomy": "post_tag", "operator": "EXISTS"}))
	assert.Empty(t, run(map[string]any{"taxonomy": "category", "terms": []any{sport, news}, "operator": "AND"}))
	assert.Equal(t, []string{"c"}, run(map[string]any{"taxonomy": "category", "terms": []any{sport}, "operator": "AND"}))

	// Renaming a term invalidates slug-based tax queries.
	gone, err := f.posts.QueryVars(ctx, map[string]any{"tax_query": map[string]any{"taxonomy": "category", "terms": "sport", "field": "slug"}})
	require.NoError(t, err)
	require.Len(t, gone.Posts, 1)
	require.NoError(t, f.store.DeleteTerm(ctx, sport, "category"))
	gone, err = f.posts.QueryVars(ctx, map[string]any{"tax_query": map[string]any{"taxonomy": "category", "terms": "sport", "field": "slug"}})
	require.NoError(t, err)
	assert.Empty(t, gone.Posts)

	_, err = f.posts.QueryVars(ctx, map[string]any{"tax_query": map[string]any{"taxonomy": "nope", "terms": "x"}})
	assert.ErrorIs(t, err, query.ErrInvalidTaxonomy)
}

func TestPostsQuery_PrimesObjectCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.post(t, store.Post{Title: "primed", Date: baseDate})
	news := f.term(t, "category", "News", 0)
	require.NoError(t, f.store.SetObjectTerms(ctx, id, "category", []int64{news}))
	require.NoError(t, f.store.SetPostMeta(ctx, id, "k", "v"))

	_, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)

	key := "1"
	var post store.Post
	ok, err := f.cache.Get(ctx, query.GroupPosts, key, &post)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "primed", post.Title)

	var meta store.Meta
	ok, err = f.cache.Get(ctx, query.GroupPostMeta, key, &meta)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"v"}, meta["k"])

	var terms []store.Term
	ok, err = f.cache.Get(ctx, query.GroupObjectTerms, key, &terms)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, terms, 1)
	assert.Equal(t, "news", terms[0].Slug)

	// Writes drop the stale entries.
	require.NoError(t, f.store.SetPostMeta(ctx, id, "k", "w"))
	ok, err = f.cache.Get(ctx, query.GroupPostMeta, key, &meta)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.posts.Meta(ctx, []int64{id})
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, got[id]["k"])
}

func TestPostsQuery_SkipsPrimingWhenDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.post(t, store.Post{Title: "x", Date: baseDate})

	_, err := f.posts.QueryVars(ctx, map[string]any{"update_post_meta_cache": false, "update_post_term_cache": false})
	require.NoError(t, err)

	var meta store.Meta
	ok, err := f.cache.Get(ctx, query.GroupPostMeta, "1", &meta)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostsQuery_ClausesFilter(t *testing.T) {
	h := &query.Hooks{}
	h.PostsClauses.Add(10, "only-a", func(_ context.Context, c query.PostClauses) query.PostClauses {
		c.Where.SQL += " AND posts.post_title = ?"
		c.Where.Args = append(c.Where.Args, "a")
		return c
	})
	f := newFixture(t, query.WithHooks(h))
	ctx := context.Background()
	f.post(t, store.Post{Title: "a", Date: baseDate})
	f.post(t, store.Post{Title: "b", Date: baseDate})

	res, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(res.Posts))
	assert.True(t, strings.Contains(res.Request.SQL, "post_title = ?"))

	res, err = f.posts.Query(ctx, query.PostArgs{SuppressFilters: true})
	require.NoError(t, err)
	assert.Len(t, res.Posts, 2)
}

func TestPostsQuery_NoCacheResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.post(t, store.Post{Title: "a", Date: baseDate})

	off := false
	for i := 0; i < 2; i++ {
		res, err := f.posts.Query(ctx, query.PostArgs{CacheResults: &off})
		require.NoError(t, err)
		assert.False(t, res.CacheHit)
		assert.Empty(t, res.CacheKey)
		assert.Len(t, res.Posts, 1)
	}
}

func TestPostsQuery_CommentCountRefreshed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.post(t, store.Post{Title: "a", Date: baseDate})

	res, err := f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Posts[0].CommentCount)

	_, err = f.store.InsertComment(ctx, &store.Comment{PostID: id, Content: "hi"})
	require.NoError(t, err)
	res, err = f.posts.Query(ctx, query.PostArgs{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Posts[0].CommentCount)
}

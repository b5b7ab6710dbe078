package library_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/interactivity"
	"github.com/jonwraymond/blockpress/library"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/render"
	"github.com/jonwraymond/blockpress/store"
	"github.com/jonwraymond/blockpress/supports"
)

type env struct {
	store    *store.Store
	state    *interactivity.Store
	renderer *render.Renderer
	registry *blocktype.Registry
	notices  *observe.Recorder
}

func newEnv(t *testing.T, withPosts bool) *env {
	t.Helper()
	ctx := context.Background()
	reg := hooks.NewRegistry()
	st, err := store.Open(ctx, store.Config{Path: store.MemoryPath}, store.WithHooks(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	oc := cache.NewObjectCache(nil, cache.DefaultPolicy())
	query.NewInvalidator(oc, nil).Subscribe(reg)

	rec := observe.NewRecorder()
	state := interactivity.NewStore(rec)
	deps := library.Deps{Interactivity: state, Logger: rec}
	if withPosts {
		deps.Posts = query.NewPosts(st, oc)
	}

	blocks := blocktype.NewRegistry(blocktype.WithAttributeRegistrar(supports.RegisterAttributes))
	require.NoError(t, library.Register(blocks, deps))

	r := render.New(blocks,
		render.WithInteractivity(interactivity.NewProcessor(state, rec)),
		render.WithLogger(rec),
	)
	return &env{store: st, state: state, renderer: r, registry: blocks, notices: rec}
}

func (e *env) post(t *testing.T, p store.Post) int64 {
	t.Helper()
	if p.Status == "" {
		p.Status = "publish"
	}
	id, err := e.store.InsertPost(context.Background(), &p)
	require.NoError(t, err)
	return id
}

func (e *env) render(t *testing.T, content string) string {
	t.Helper()
	out, err := e.renderer.RenderContent(context.Background(), content)
	require.NoError(t, err)
	return out
}

func TestRegister(t *testing.T) {
	e := newEnv(t, true)

	for _, name := range library.Names {
		assert.True(t, e.registry.IsRegistered(name), name)
	}
	assert.False(t, e.registry.Get("core/paragraph").IsDynamic())
	assert.True(t, e.registry.Get("core/latest-posts").IsDynamic())
	assert.True(t, e.registry.Get("core/disclosure").IsDynamic())
	assert.Equal(t, map[string]string{"group/tagName": "tagName"}, e.registry.Get("core/group").ProvidesContext)
	assert.Len(t, e.registry.Get("core/heading").GetVariations(context.Background()), 3)

	_, ok := e.registry.Get("core/latest-posts").Attributes["align"]
	assert.True(t, ok, "supports attributes are registered")

	err := library.Register(e.registry, library.Deps{})
	assert.ErrorIs(t, err, blocktype.ErrAlreadyRegistered)
}

func TestMetadata(t *testing.T) {
	data, err := library.Metadata("heading")
	require.NoError(t, err)
	name, args, err := blocktype.ParseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, "core/heading", name)
	assert.Equal(t, "Heading", args.Title)

	_, err = library.Metadata("core/missing")
	assert.Error(t, err)
}

func TestStaticBlocks(t *testing.T) {
	e := newEnv(t, false)
	in := `<!-- wp:group {"tagName":"section"} --><section class="wp-block-group"><!-- wp:heading {"level":3} --><h3>Title</h3><!-- /wp:heading --><!-- wp:paragraph --><p>Body</p><!-- /wp:paragraph --></section><!-- /wp:group -->`
	assert.Equal(t, `<section class="wp-block-group"><h3>Title</h3><p>Body</p></section>`, e.render(t, in))
}

func TestLatestPosts(t *testing.T) {
	e := newEnv(t, true)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e.post(t, store.Post{Title: "Oldest", Date: base})
	e.post(t, store.Post{Title: "Middle", Date: base.Add(time.Hour)})
	e.post(t, store.Post{Title: "Newest <b>", Date: base.Add(2 * time.Hour), Content: "<!-- wp:paragraph --><p>One two three four</p><!-- /wp:paragraph -->"})
	e.post(t, store.Post{Title: "Draft", Status: "draft", Date: base.Add(3 * time.Hour)})

	out := e.render(t, `<!-- wp:latest-posts {"postsToShow":2,"displayPostDate":true,"displayPostContent":true,"excerptLength":2,"align":"wide"} /-->`)

	assert.True(t, strings.HasPrefix(out, "<ul "), out)
	for _, class := range []string{"wp-block-latest-posts__list", "has-dates", "wp-block-latest-posts", "alignwide"} {
		assert.Contains(t, out, class)
	}
	assert.Contains(t, out, `>Newest &lt;b&gt;</a>`)
	assert.Contains(t, out, `>Middle</a>`)
	assert.NotContains(t, out, "Oldest")
	assert.NotContains(t, out, "Draft")
	assert.Contains(t, out, `<time datetime="2024-03-01T11:00:00Z" class="wp-block-latest-posts__post-date">March 1, 2024</time>`)
	assert.Contains(t, out, `<div class="wp-block-latest-posts__post-excerpt">One two…</div>`)
	assert.Less(t, strings.Index(out, "Newest"), strings.Index(out, "Middle"))

	asc := e.render(t, `<!-- wp:latest-posts {"order":"asc","orderBy":"title"} /-->`)
	assert.Less(t, strings.Index(asc, "Middle"), strings.Index(asc, "Newest"))
	assert.Less(t, strings.Index(asc, "Newest"), strings.Index(asc, "Oldest"))
}

func TestLatestPosts_Categories(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	news, err := e.store.InsertTerm(ctx, &store.Term{Name: "News", Taxonomy: "category"})
	require.NoError(t, err)

	e.post(t, store.Post{Title: "Untagged", Date: time.Now()})
	tagged := e.post(t, store.Post{Title: "Tagged", Date: time.Now().Add(-time.Hour)})
	require.NoError(t, e.store.SetObjectTerms(ctx, tagged, "category", []int64{news}))

	out := e.render(t, `<!-- wp:latest-posts {"categories":[{"id":`+strconv.FormatInt(news, 10)+`}]} /-->`)
	assert.Contains(t, out, "Tagged")
	assert.NotContains(t, out, "Untagged")
}

func TestLatestPosts_MissingDependency(t *testing.T) {
	e := newEnv(t, false)
	assert.Empty(t, e.render(t, `<!-- wp:latest-posts /-->`))

	notices := e.notices.NoticesFor("Renderer.RenderBlock")
	require.Len(t, notices, 1)
	notice, _ := notices[0].Field("notice")
	assert.Contains(t, notice, "missing dependency")
}

func TestDisclosure(t *testing.T) {
	e := newEnv(t, false)

	closed := e.render(t, `<!-- wp:disclosure {"summary":"More & less"} --><!-- wp:paragraph --><p>Hidden text</p><!-- /wp:paragraph --><!-- /wp:disclosure -->`)
	assert.Contains(t, closed, `data-wp-interactive="core/disclosure"`)
	assert.Contains(t, closed, `aria-expanded="false"`)
	assert.Contains(t, closed, `title="Toggle section"`)
	assert.Contains(t, closed, " hidden")
	assert.Contains(t, closed, `class="wp-block-disclosure__content"`)
	assert.Contains(t, closed, ">More &amp; less</button>")
	assert.Contains(t, closed, "<p>Hidden text</p>")

	open := e.render(t, `<!-- wp:disclosure {"open":true} /-->`)
	assert.Contains(t, open, `aria-expanded="true"`)
	assert.Contains(t, open, `class="wp-block-disclosure__content is-open"`)
	assert.NotContains(t, open, " hidden")
	assert.Contains(t, open, ">Details</button>")

	state := e.state.State(library.DisclosureNamespace, nil)
	title, ok := state.StringAt("toggleTitle")
	require.True(t, ok)
	assert.Equal(t, "Toggle section", title)
	assert.Empty(t, e.notices.Notices())
}

func TestStripTagsAndTrimWords(t *testing.T) {
	assert.Equal(t, "Hello world again", library.StripTags("<p>Hello <em>world</em></p>\n<!-- c --><p>again</p>"))
	assert.Equal(t, "a b…", library.TrimWords("a b c", 2))
	assert.Equal(t, "a b", library.TrimWords(" a  b ", 5))
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "/?p=4", library.Permalink(&store.Post{ID: 4, Type: "post"}))
	assert.Equal(t, "/?page_id=9", library.Permalink(&store.Post{ID: 9, Type: "page"}))
}

func TestDisclosure_SeedsContextStore(t *testing.T) {
	e := newEnv(t, false)

	perRequest := interactivity.NewStore(nil)
	ctx := interactivity.WithStore(context.Background(), perRequest)
	r := render.New(e.registry, render.WithInteractivity(interactivity.NewProcessor(perRequest, nil)))

	out, err := r.RenderContent(ctx, `<!-- wp:disclosure /-->`)
	require.NoError(t, err)
	assert.Contains(t, out, `title="Toggle section"`)

	assert.Equal(t, []string{library.DisclosureNamespace}, perRequest.Namespaces())
	assert.Empty(t, e.state.Namespaces())
}

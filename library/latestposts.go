package library

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/blocktype"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/store"
)

const dateLayout = "January 2, 2006"

type latestPosts struct {
	deps Deps
}

// render lists the most recent published posts.
func (lp latestPosts) render(ctx context.Context, attrs *attr.Object, _ string, inst blocktype.Instance) (string, error) {
	if lp.deps.Posts == nil {
		return "", fmt.Errorf("%w: core/latest-posts needs a post query service", ErrMissingDependency)
	}

	res, err := lp.deps.Posts.Query(ctx, latestPostsArgs(attrs))
	if err != nil {
		return "", fmt.Errorf("library: latest posts: %w", err)
	}
	lp.deps.Logger.Debug(ctx, "latest posts queried",
		observe.Field{Key: "count", Value: len(res.Posts)},
		observe.Field{Key: "cache_hit", Value: res.CacheHit},
	)

	showDate := truthy(attrs, "displayPostDate")
	showExcerpt := truthy(attrs, "displayPostContent")
	words := 55
	if n, ok := intAttr(attrs, "excerptLength"); ok && n > 0 {
		words = int(n)
	}

	classes := "wp-block-latest-posts__list"
	if showDate {
		classes += " has-dates"
	}

	var b strings.Builder
	b.WriteString("<ul ")
	b.WriteString(wrapperAttributes(inst, map[string]string{"class": classes}))
	b.WriteString(">")
	for _, p := range res.Posts {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = "(no title)"
		}
		b.WriteString("<li>")
		fmt.Fprintf(&b, `<a class="wp-block-latest-posts__post-title" href="%s">%s</a>`,
			html.EscapeString(Permalink(p)), html.EscapeString(title))
		if showDate {
			fmt.Fprintf(&b, `<time datetime="%s" class="wp-block-latest-posts__post-date">%s</time>`,
				p.Date.UTC().Format("2006-01-02T15:04:05Z07:00"), p.Date.UTC().Format(dateLayout))
		}
		if showExcerpt {
			source := p.Excerpt
			if strings.TrimSpace(source) == "" {
				source = p.Content
			}
			fmt.Fprintf(&b, `<div class="wp-block-latest-posts__post-excerpt">%s</div>`,
				html.EscapeString(TrimWords(StripTags(source), words)))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String(), nil
}

func latestPostsArgs(attrs *attr.Object) query.PostArgs {
	no := false
	args := query.PostArgs{
		PostStatus:          []string{"publish"},
		PostsPerPage:        5,
		NoFoundRows:         true,
		UpdatePostTermCache: &no,
		UpdatePostMetaCache: &no,
	}
	if n, ok := intAttr(attrs, "postsToShow"); ok && n > 0 {
		args.PostsPerPage = int(n)
	}
	if order, ok := attrs.StringAt("order"); ok {
		args.Order = order
	}
	if orderBy, ok := attrs.StringAt("orderBy"); ok {
		args.OrderBy = []string{orderBy}
	}
	if author, ok := intAttr(attrs, "selectedAuthor"); ok && author > 0 {
		args.Author = []int64{author}
	}
	if cats := categoryIDs(attrs); len(cats) > 0 {
		args.TaxQuery = []query.TaxClause{{Taxonomy: "category", Terms: cats}}
	}
	return args
}

// categoryIDs reads the categories attribute, a list of term IDs or of
// objects with an "id" key.
func categoryIDs(attrs *attr.Object) []string {
	v, ok := attrs.Get("categories")
	if !ok {
		return nil
	}
	list, _ := v.AsArray()
	var out []string
	for _, e := range list {
		if obj, isObj := e.AsObject(); isObj {
			e, _ = obj.Get("id")
		}
		if id, isInt := e.AsInt(); isInt && id > 0 {
			out = append(out, strconv.FormatInt(id, 10))
		}
	}
	return out
}

// Permalink returns the plain permalink of a post.
func Permalink(p *store.Post) string {
	if p.Type == "page" {
		return "/?page_id=" + strconv.FormatInt(p.ID, 10)
	}
	return "/?p=" + strconv.FormatInt(p.ID, 10)
}

// StripTags returns the text content of an HTML fragment with runs of
// whitespace collapsed. Block delimiters and other comments are dropped.
func StripTags(s string) string {
	z := nethtml.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case nethtml.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		case nethtml.StartTagToken, nethtml.EndTagToken, nethtml.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// TrimWords keeps the first n words of s, appending an ellipsis when
// words were dropped.
func TrimWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}

func truthy(attrs *attr.Object, key string) bool {
	v, ok := attrs.Get(key)
	return ok && v.Truthy()
}

func intAttr(attrs *attr.Object, key string) (int64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// wrapperAttributes falls back to rendering extra as-is when the block
// renders outside a renderer.
func wrapperAttributes(inst blocktype.Instance, extra map[string]string) string {
	if inst != nil {
		if s := inst.WrapperAttributes(extra); s != "" {
			return s
		}
	}
	names := make([]string, 0, len(extra))
	for k := range extra {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, html.EscapeString(k)+`="`+html.EscapeString(extra[k])+`"`)
	}
	return strings.Join(parts, " ")
}

package query

import (
	"context"
	"strconv"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/store"
)

// PostResult is the outcome of a post query.
type PostResult struct {
	// Posts holds the matched posts unless fields is ids or id=>parent.
	Posts []*store.Post
	IDs   []int64
	// Parents maps each ID to its parent for fields id=>parent.
	Parents   map[int64]int64
	FoundRows int64
	MaxPages  int
	Request   store.Request
	CacheKey  string
	CacheHit  bool
}

// postQueryEntry is the cached form of a post query result.
type postQueryEntry struct {
	IDs       []int64 `cbor:"1,keyasint"`
	FoundRows int64   `cbor:"2,keyasint"`
}

// Posts runs cached post queries.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: invalid arguments wrap ErrInvalidArgs or ErrInvalidTaxonomy;
// database errors are returned after busy retries are exhausted.
type Posts struct {
	store *store.Store
	cache *cache.ObjectCache
	terms *Terms
	opts  options
}

// NewPosts returns a post query service.
func NewPosts(st *store.Store, oc *cache.ObjectCache, opts ...Option) *Posts {
	o := buildOptions(opts)
	return &Posts{
		store: st,
		cache: oc,
		terms: newTerms(st, oc, o),
		opts:  o,
	}
}

// Types returns the type registry queries are built against.
func (p *Posts) Types() *Types { return p.opts.types }

// Hooks returns the clause filters.
func (p *Posts) Hooks() *Hooks { return p.opts.hooks }

// Terms returns the term query service sharing this service's options.
func (p *Posts) Terms() *Terms { return p.terms }

// QueryVars decodes vars and runs the query.
func (p *Posts) QueryVars(ctx context.Context, vars map[string]any) (*PostResult, error) {
	args, err := DecodePostArgs(vars)
	if err != nil {
		return nil, err
	}
	return p.Query(ctx, args)
}

// Query runs a post query, serving the matching IDs from the cache when
// possible.
func (p *Posts) Query(ctx context.Context, args PostArgs) (*PostResult, error) {
	norm, req, countReq, err := p.prepare(ctx, args)
	if err != nil {
		return nil, err
	}
	res := &PostResult{Request: req}

	var entry postQueryEntry
	if boolValue(norm.CacheResults, true) {
		if res.CacheKey, err = p.cacheKey(ctx, norm, req); err != nil {
			return nil, err
		}
		err = p.opts.mw.TraceQuery(ctx, "posts", res.CacheKey, func(ctx context.Context) error {
			hit, err := p.cache.Remember(ctx, GroupPostQueries, res.CacheKey, p.opts.ttl, &entry,
				func(ctx context.Context) (any, error) {
					return p.execute(ctx, norm, req, countReq)
				})
			if err != nil {
				return err
			}
			res.CacheHit = hit
			p.opts.mw.CacheLookup(ctx, GroupPostQueries, hit)
			return nil
		})
	} else {
		err = p.opts.mw.TraceQuery(ctx, "posts", "", func(ctx context.Context) error {
			var err error
			entry, err = p.execute(ctx, norm, req, countReq)
			return err
		})
	}
	if err != nil {
		return nil, err
	}

	res.IDs = entry.IDs
	res.FoundRows = entry.FoundRows
	if norm.PostsPerPage > 0 {
		res.MaxPages = int((entry.FoundRows + int64(norm.PostsPerPage) - 1) / int64(norm.PostsPerPage))
	} else if len(entry.IDs) > 0 {
		res.MaxPages = 1
	}
	if norm.Fields == FieldsIDs || len(entry.IDs) == 0 {
		return res, nil
	}

	posts, err := p.Get(ctx, entry.IDs)
	if err != nil {
		return nil, err
	}
	if norm.Fields == FieldsIDParent {
		res.Parents = make(map[int64]int64, len(posts))
		for _, post := range posts {
			res.Parents[post.ID] = post.Parent
		}
		return res, nil
	}
	res.Posts = posts

	if boolValue(norm.UpdatePostMetaCache, true) {
		if _, err := p.Meta(ctx, entry.IDs); err != nil {
			return nil, err
		}
	}
	if boolValue(norm.UpdatePostTermCache, true) {
		if _, err := p.ObjectTerms(ctx, entry.IDs); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// CacheKey returns the key a query for args is cached under.
func (p *Posts) CacheKey(ctx context.Context, args PostArgs) (string, error) {
	norm, req, _, err := p.prepare(ctx, args)
	if err != nil {
		return "", err
	}
	return p.cacheKey(ctx, norm, req)
}

func (p *Posts) prepare(ctx context.Context, args PostArgs) (PostArgs, store.Request, store.Request, error) {
	norm, err := Normalize(args, p.opts.types)
	if err != nil {
		return PostArgs{}, store.Request{}, store.Request{}, err
	}
	cl, err := postClauses(norm, p.opts.types)
	if err != nil {
		return PostArgs{}, store.Request{}, store.Request{}, err
	}
	if !norm.SuppressFilters {
		cl = p.opts.hooks.PostsClauses.Apply(ctx, cl)
	}
	req, countReq := postRequests(cl)
	if norm.NoFoundRows || cl.Limit <= 0 {
		countReq = store.Request{}
	}
	return norm, req, countReq, nil
}

func (p *Posts) cacheKey(ctx context.Context, norm PostArgs, req store.Request) (string, error) {
	groups := []string{GroupPosts}
	if len(norm.TaxQuery) > 0 {
		groups = append(groups, GroupTerms)
	}
	lc, err := lastChanged(ctx, p.cache, groups...)
	if err != nil {
		return "", err
	}
	vars := postVars(norm)
	vars["types"] = p.opts.types.fingerprint()
	return GenerateCacheKey(PostsKeyPrefix, vars, req, lc)
}

func (p *Posts) execute(ctx context.Context, norm PostArgs, req, countReq store.Request) (postQueryEntry, error) {
	var entry postQueryEntry
	err := p.opts.exec.Execute(ctx, func(ctx context.Context) error {
		ids, err := p.store.QueryInt64s(ctx, req)
		if err != nil {
			return err
		}
		entry.IDs = ids
		entry.FoundRows = int64(len(ids))
		if countReq.SQL == "" {
			return nil
		}
		return p.store.QueryRow(ctx, countReq).Scan(&entry.FoundRows)
	})
	if err != nil {
		p.opts.logger.Error(ctx, "post query failed",
			observe.Field{Key: "sql", Value: store.RemovePlaceholderEscape(req.SQL)},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return postQueryEntry{}, err
	}
	return entry, nil
}

// Get returns the posts with ids in order, reading through the posts
// cache group.
func (p *Posts) Get(ctx context.Context, ids []int64) ([]*store.Post, error) {
	keys := idKeys(ids)
	cached, err := cache.GetMultiple[store.Post](ctx, p.cache, GroupPosts, keys)
	if err != nil {
		return nil, err
	}

	var missing []int64
	for i, id := range ids {
		if _, ok := cached[keys[i]]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		var loaded []*store.Post
		err := p.opts.exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			loaded, err = p.store.GetPosts(ctx, missing)
			return err
		})
		if err != nil {
			return nil, err
		}
		items := make(map[string]any, len(loaded))
		for _, post := range loaded {
			key := strconv.FormatInt(post.ID, 10)
			cached[key] = *post
			items[key] = post
		}
		p.prime(ctx, GroupPosts, items)
	}

	out := make([]*store.Post, 0, len(ids))
	for i := range ids {
		if post, ok := cached[keys[i]]; ok {
			out = append(out, &post)
		}
	}
	return out, nil
}

// Meta returns the metadata of each post, reading through the post_meta
// cache group.
func (p *Posts) Meta(ctx context.Context, ids []int64) (map[int64]store.Meta, error) {
	keys := idKeys(ids)
	cached, err := cache.GetMultiple[store.Meta](ctx, p.cache, GroupPostMeta, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]store.Meta, len(ids))
	var missing []int64
	for i, id := range ids {
		if m, ok := cached[keys[i]]; ok {
			out[id] = m
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var loaded map[int64]store.Meta
	err = p.opts.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		loaded, err = p.store.GetPostMeta(ctx, missing)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := make(map[string]any, len(loaded))
	for id, m := range loaded {
		out[id] = m
		items[strconv.FormatInt(id, 10)] = m
	}
	p.prime(ctx, GroupPostMeta, items)
	return out, nil
}

// ObjectTerms returns the terms attached to each post across all
// taxonomies, reading through the object_terms cache group.
func (p *Posts) ObjectTerms(ctx context.Context, ids []int64) (map[int64][]store.Term, error) {
	keys := idKeys(ids)
	cached, err := cache.GetMultiple[[]store.Term](ctx, p.cache, GroupObjectTerms, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]store.Term, len(ids))
	var missing []int64
	for i, id := range ids {
		if terms, ok := cached[keys[i]]; ok {
			out[id] = terms
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	hideEmpty := false
	res, err := p.terms.Query(ctx, TermArgs{
		ObjectIDs: missing,
		Fields:    FieldsWithObjID,
		HideEmpty: &hideEmpty,
	})
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		out[id] = []store.Term{}
	}
	for _, t := range res.Terms {
		out[t.ObjectID] = append(out[t.ObjectID], t)
	}
	items := make(map[string]any, len(missing))
	for _, id := range missing {
		items[strconv.FormatInt(id, 10)] = out[id]
	}
	p.prime(ctx, GroupObjectTerms, items)
	return out, nil
}

// prime stores items in group. Failures only cost a later miss.
func (p *Posts) prime(ctx context.Context, group string, items map[string]any) {
	if len(items) == 0 {
		return
	}
	if err := p.cache.SetMultiple(ctx, group, items, 0); err != nil {
		p.opts.logger.Warn(ctx, "cache prime failed",
			observe.Field{Key: "cache.group", Value: group},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

func idKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatInt(id, 10)
	}
	return keys
}

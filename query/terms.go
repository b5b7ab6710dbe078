package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/store"
)

// TermResult is the outcome of a term query. Which fields are set depends
// on the fields mode.
type TermResult struct {
	// Terms is set for fields all and all_with_object_id. The latter
	// holds one entry per term and object pair, so a term attached to two
	// of the queried objects appears twice.
	Terms   []store.Term
	IDs     []int64
	TTIDs   []int64
	Names   []string
	Slugs   []string
	Parents map[int64]int64
	Count   int64

	Request  store.Request
	CacheKey string
	CacheHit bool
}

type termQueryEntry struct {
	Terms []store.Term `cbor:"1,keyasint"`
	Count int64        `cbor:"2,keyasint"`
}

// Terms runs cached term queries.
//
// Contract:
// - Concurrency: safe for concurrent use.
type Terms struct {
	store *store.Store
	cache *cache.ObjectCache
	opts  options
}

// NewTerms returns a term query service.
func NewTerms(st *store.Store, oc *cache.ObjectCache, opts ...Option) *Terms {
	return newTerms(st, oc, buildOptions(opts))
}

func newTerms(st *store.Store, oc *cache.ObjectCache, o options) *Terms {
	return &Terms{store: st, cache: oc, opts: o}
}

// QueryVars decodes vars and runs the query.
func (t *Terms) QueryVars(ctx context.Context, vars map[string]any) (*TermResult, error) {
	args, err := DecodeTermArgs(vars)
	if err != nil {
		return nil, err
	}
	return t.Query(ctx, args)
}

// Query runs a term query.
func (t *Terms) Query(ctx context.Context, args TermArgs) (*TermResult, error) {
	norm, req, err := t.prepare(ctx, args)
	if err != nil {
		return nil, err
	}
	res := &TermResult{Request: req}

	var entry termQueryEntry
	if boolValue(norm.CacheResults, true) {
		if res.CacheKey, err = t.cacheKey(ctx, norm, req); err != nil {
			return nil, err
		}
		err = t.opts.mw.TraceQuery(ctx, "terms", res.CacheKey, func(ctx context.Context) error {
			hit, err := t.cache.Remember(ctx, GroupTermQueries, res.CacheKey, t.opts.ttl, &entry,
				func(ctx context.Context) (any, error) {
					return t.execute(ctx, norm, req)
				})
			if err != nil {
				return err
			}
			res.CacheHit = hit
			t.opts.mw.CacheLookup(ctx, GroupTermQueries, hit)
			return nil
		})
	} else {
		err = t.opts.mw.TraceQuery(ctx, "terms", "", func(ctx context.Context) error {
			var err error
			entry, err = t.execute(ctx, norm, req)
			return err
		})
	}
	if err != nil {
		return nil, err
	}

	project(res, norm.Fields, entry)

	if (norm.Fields == FieldsAll || norm.Fields == FieldsWithObjID) && boolValue(norm.UpdateTermMetaCache, true) {
		ids := make([]int64, 0, len(entry.Terms))
		for _, term := range entry.Terms {
			ids = append(ids, term.ID)
		}
		if _, err := t.Meta(ctx, stableUniqueIDs(ids)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func project(res *TermResult, fields string, entry termQueryEntry) {
	switch fields {
	case FieldsCount:
		res.Count = entry.Count
		return
	case FieldsAll, FieldsWithObjID:
		res.Terms = entry.Terms
		res.Count = int64(len(entry.Terms))
		return
	case FieldsIDParent:
		res.Parents = make(map[int64]int64, len(entry.Terms))
	}
	for _, term := range entry.Terms {
		switch fields {
		case FieldsIDs:
			res.IDs = append(res.IDs, term.ID)
		case FieldsTTIDs:
			res.TTIDs = append(res.TTIDs, term.TaxonomyID)
		case FieldsNames:
			res.Names = append(res.Names, term.Name)
		case FieldsSlugs:
			res.Slugs = append(res.Slugs, term.Slug)
		case FieldsIDParent:
			res.IDs = append(res.IDs, term.ID)
			res.Parents[term.ID] = term.Parent
		}
	}
	res.Count = int64(len(entry.Terms))
}

// CacheKey returns the key a query for args is cached under.
func (t *Terms) CacheKey(ctx context.Context, args TermArgs) (string, error) {
	norm, req, err := t.prepare(ctx, args)
	if err != nil {
		return "", err
	}
	return t.cacheKey(ctx, norm, req)
}

func (t *Terms) prepare(ctx context.Context, args TermArgs) (TermArgs, store.Request, error) {
	norm, err := NormalizeTerms(args, t.opts.types)
	if err != nil {
		return TermArgs{}, store.Request{}, err
	}
	cl := termClauses(norm)
	if !norm.SuppressFilters {
		cl = t.opts.hooks.TermsClauses.Apply(ctx, cl)
	}
	return norm, termRequest(cl), nil
}

func (t *Terms) cacheKey(ctx context.Context, norm TermArgs, req store.Request) (string, error) {
	lc, err := lastChanged(ctx, t.cache, GroupTerms)
	if err != nil {
		return "", err
	}
	vars := termVars(norm)
	vars["types"] = t.opts.types.fingerprint()
	return GenerateCacheKey(TermsKeyPrefix, vars, req, lc)
}

func (t *Terms) execute(ctx context.Context, norm TermArgs, req store.Request) (termQueryEntry, error) {
	var entry termQueryEntry
	err := t.opts.exec.Execute(ctx, func(ctx context.Context) error {
		entry = termQueryEntry{}
		if norm.Fields == FieldsCount {
			return t.store.QueryRow(ctx, req).Scan(&entry.Count)
		}
		rows, err := t.store.Query(ctx, req)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var objectID int64
			var extra []any
			if norm.Fields == FieldsWithObjID {
				extra = append(extra, &objectID)
			}
			term, err := store.ScanTerm(rows, extra...)
			if err != nil {
				return fmt.Errorf("query: scan term: %w", err)
			}
			term.ObjectID = objectID
			entry.Terms = append(entry.Terms, *term)
		}
		return rows.Err()
	})
	if err != nil {
		t.opts.logger.Error(ctx, "term query failed",
			observe.Field{Key: "sql", Value: store.RemovePlaceholderEscape(req.SQL)},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return termQueryEntry{}, err
	}
	return entry, nil
}

// Meta returns the metadata of each term, reading through the term_meta
// cache group.
func (t *Terms) Meta(ctx context.Context, ids []int64) (map[int64]store.Meta, error) {
	out := make(map[int64]store.Meta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := idKeys(ids)
	cached, err := cache.GetMultiple[store.Meta](ctx, t.cache, GroupTermMeta, keys)
	if err != nil {
		return nil, err
	}
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
	err = t.opts.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		loaded, err = t.store.GetTermMeta(ctx, missing)
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
	if err := t.cache.SetMultiple(ctx, GroupTermMeta, items, 0); err != nil {
		t.opts.logger.Warn(ctx, "cache prime failed",
			observe.Field{Key: "cache.group", Value: GroupTermMeta},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return out, nil
}

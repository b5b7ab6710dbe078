package query

import (
	"context"
	"strconv"

	"github.com/jonwraymond/blockpress/cache"
	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/observe"
)

const invalidatorName = "query.invalidator"

// Invalidator keeps cached query results consistent with store writes.
// It bumps a group's last_changed, which changes every later query key in
// that group, and deletes the per-object entries a write made stale.
type Invalidator struct {
	cache  *cache.ObjectCache
	logger observe.Logger
}

// NewInvalidator returns an Invalidator over c. A nil logger discards
// failures.
func NewInvalidator(c *cache.ObjectCache, logger observe.Logger) *Invalidator {
	if logger == nil {
		logger = observe.NoopLogger()
	}
	return &Invalidator{cache: c, logger: logger}
}

// Subscribe registers the invalidator on every mutation action in reg.
func (inv *Invalidator) Subscribe(reg *hooks.Registry) {
	reg.PostSaved.Add(10, invalidatorName, inv.PostSaved)
	reg.PostDeleted.Add(10, invalidatorName, inv.PostDeleted)
	reg.PostMetaChanged.Add(10, invalidatorName, inv.PostMetaChanged)
	reg.ObjectTermsChanged.Add(10, invalidatorName, inv.ObjectTermsChanged)
	reg.TermChanged.Add(10, invalidatorName, inv.TermChanged)
	reg.CommentChanged.Add(10, invalidatorName, inv.CommentChanged)
}

// Unsubscribe removes the invalidator from reg.
func (inv *Invalidator) Unsubscribe(reg *hooks.Registry) {
	reg.PostSaved.Remove(invalidatorName)
	reg.PostDeleted.Remove(invalidatorName)
	reg.PostMetaChanged.Remove(invalidatorName)
	reg.ObjectTermsChanged.Remove(invalidatorName)
	reg.TermChanged.Remove(invalidatorName)
	reg.CommentChanged.Remove(invalidatorName)
}

// PostSaved drops the cached post and invalidates post queries.
func (inv *Invalidator) PostSaved(ctx context.Context, e hooks.PostEvent) {
	inv.delete(ctx, GroupPosts, e.ID)
	inv.bump(ctx, GroupPosts)
}

// PostDeleted drops everything cached for the post.
func (inv *Invalidator) PostDeleted(ctx context.Context, e hooks.PostEvent) {
	inv.delete(ctx, GroupPosts, e.ID)
	inv.delete(ctx, GroupPostMeta, e.ID)
	inv.delete(ctx, GroupObjectTerms, e.ID)
	inv.bump(ctx, GroupPosts)
}

// PostMetaChanged drops the post's cached metadata. Meta queries select
// on it, so post queries are invalidated too.
func (inv *Invalidator) PostMetaChanged(ctx context.Context, e hooks.MetaEvent) {
	inv.delete(ctx, GroupPostMeta, e.ObjectID)
	inv.bump(ctx, GroupPosts)
}

// ObjectTermsChanged drops the object's cached terms. Term counts and tax
// queries both change.
func (inv *Invalidator) ObjectTermsChanged(ctx context.Context, e hooks.ObjectTermsEvent) {
	inv.delete(ctx, GroupObjectTerms, e.ObjectID)
	inv.bump(ctx, GroupPosts)
	inv.bump(ctx, GroupTerms)
}

// TermChanged invalidates term queries. Post queries with a tax query
// fold the terms last_changed into their keys.
func (inv *Invalidator) TermChanged(ctx context.Context, e hooks.TermEvent) {
	inv.delete(ctx, GroupTermMeta, e.TermID)
	inv.bump(ctx, GroupTerms)
}

// CommentChanged drops the parent post, whose comment count changed.
func (inv *Invalidator) CommentChanged(ctx context.Context, e hooks.CommentEvent) {
	inv.delete(ctx, GroupPosts, e.PostID)
	inv.bump(ctx, GroupPosts)
}

func (inv *Invalidator) delete(ctx context.Context, group string, id int64) {
	if id <= 0 {
		return
	}
	if err := inv.cache.Delete(ctx, group, strconv.FormatInt(id, 10)); err != nil {
		inv.logger.Warn(ctx, "cache delete failed",
			observe.Field{Key: "cache.group", Value: group},
			observe.Field{Key: "object_id", Value: id},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

func (inv *Invalidator) bump(ctx context.Context, group string) {
	if _, err := inv.cache.BumpLastChanged(ctx, group); err != nil {
		inv.logger.Warn(ctx, "last_changed bump failed",
			observe.Field{Key: "cache.group", Value: group},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

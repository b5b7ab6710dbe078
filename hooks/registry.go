package hooks

// PostEvent describes a saved or deleted post.
type PostEvent struct {
	ID       int64
	PostType string
	Status   string
	Author   int64
}

// MetaEvent describes a change to an object's metadata.
type MetaEvent struct {
	ObjectID int64
	Key      string
}

// TermEvent describes a created, updated or deleted term.
type TermEvent struct {
	TermID   int64
	Taxonomy string
}

// ObjectTermsEvent describes a change to the terms attached to an object.
type ObjectTermsEvent struct {
	ObjectID int64
	Taxonomy string
	TermIDs  []int64
}

// CommentEvent describes a created or deleted comment.
type CommentEvent struct {
	ID     int64
	PostID int64
}

// Registry bundles the mutation actions shared by the store, which fires
// them, and cache invalidation, which subscribes to them.
//
// Filters that belong to a single component live with that component
// (block type variations, render filters, query clause filters).
type Registry struct {
	PostSaved          Action[PostEvent]
	PostDeleted        Action[PostEvent]
	PostMetaChanged    Action[MetaEvent]
	TermChanged        Action[TermEvent]
	ObjectTermsChanged Action[ObjectTermsEvent]
	CommentChanged     Action[CommentEvent]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

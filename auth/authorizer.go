package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authorizer decides whether an identity holds a capability.
type Authorizer interface {
	// Authorize returns nil when permitted, or an error (typically
	// *AuthzError) when denied.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest asks whether Subject holds Capability, optionally on the
// object ObjectID (a post ID for the post meta capabilities).
type AuthzRequest struct {
	Subject    *Identity
	Capability string
	ObjectID   int64
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	UserID     int64
	Capability string
	ObjectID   int64

	// Required lists the primitive capabilities that were checked.
	Required []string

	Reason string
	Cause  error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: user=%d capability=%q object=%d reason=%q",
		e.UserID, e.Capability, e.ObjectID, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// PostLookup loads the post an object capability refers to. It returns
// (nil, nil) when the post does not exist.
type PostLookup func(ctx context.Context, id int64) (*PostInfo, error)

// CapabilityAuthorizer checks capabilities against role sets, mapping
// post meta capabilities through MapMetaCap.
type CapabilityAuthorizer struct {
	roles *Roles
	posts PostLookup
}

// NewCapabilityAuthorizer returns an authorizer over roles. posts may be
// nil, in which case post meta capabilities are never granted.
func NewCapabilityAuthorizer(roles *Roles, posts PostLookup) *CapabilityAuthorizer {
	if roles == nil {
		roles = DefaultRoles()
	}
	return &CapabilityAuthorizer{roles: roles, posts: posts}
}

// Name returns "capabilities".
func (a *CapabilityAuthorizer) Name() string { return "capabilities" }

// Roles returns the role registry.
func (a *CapabilityAuthorizer) Roles() *Roles { return a.roles }

// Can reports whether id holds capability, on objectID when it is a post
// meta capability.
func (a *CapabilityAuthorizer) Can(ctx context.Context, id *Identity, capability string, objectID int64) (bool, error) {
	err := a.Authorize(ctx, &AuthzRequest{Subject: id, Capability: capability, ObjectID: objectID})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrForbidden) {
		return false, nil
	}
	return false, err
}

// Authorize implements Authorizer.
func (a *CapabilityAuthorizer) Authorize(ctx context.Context, req *AuthzRequest) error {
	subject := req.Subject
	if subject == nil {
		subject = AnonymousIdentity()
	}
	deny := func(required []string, reason string) error {
		return &AuthzError{
			UserID:     subject.UserID,
			Capability: req.Capability,
			ObjectID:   req.ObjectID,
			Required:   required,
			Reason:     reason,
		}
	}

	if subject.IsExpired() {
		return deny(nil, "identity expired")
	}

	var post *PostInfo
	switch req.Capability {
	case CapEditPost, CapDeletePost, CapReadPost, CapPublishPost:
		if a.posts != nil && req.ObjectID > 0 {
			p, err := a.posts(ctx, req.ObjectID)
			if err != nil {
				return fmt.Errorf("auth: load post %d: %w", req.ObjectID, err)
			}
			post = p
		}
	}

	required := MapMetaCap(req.Capability, subject.UserID, post)
	if subject.IsAnonymous() {
		// Visitors may read public posts and nothing else.
		if req.Capability == CapReadPost && post != nil && post.Status == "publish" {
			return nil
		}
		return deny(required, "not logged in")
	}
	if !a.roles.HasCap(subject.Roles, required...) {
		return deny(required, "missing capability")
	}
	return nil
}

// AllowAllAuthorizer permits all requests.
type AllowAllAuthorizer struct{}

// Authorize always returns nil (permitted).
func (a AllowAllAuthorizer) Authorize(_ context.Context, _ *AuthzRequest) error {
	return nil
}

// Name returns "allow_all".
func (a AllowAllAuthorizer) Name() string {
	return "allow_all"
}

// DenyAllAuthorizer denies all requests.
type DenyAllAuthorizer struct{}

// Authorize always returns an error (denied).
func (a DenyAllAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	var userID int64
	if req.Subject != nil {
		userID = req.Subject.UserID
	}
	return &AuthzError{
		UserID:     userID,
		Capability: req.Capability,
		ObjectID:   req.ObjectID,
		Reason:     "all requests denied",
	}
}

// Name returns "deny_all".
func (a DenyAllAuthorizer) Name() string {
	return "deny_all"
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}

var (
	_ Authorizer = (*CapabilityAuthorizer)(nil)
	_ Authorizer = AllowAllAuthorizer{}
	_ Authorizer = DenyAllAuthorizer{}
	_ Authorizer = AuthorizerFunc(nil)
)

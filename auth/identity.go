package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodNone                AuthMethod = "none"
	AuthMethodJWT                 AuthMethod = "jwt"
	AuthMethodApplicationPassword AuthMethod = "application_password"
	AuthMethodAnonymous           AuthMethod = "anonymous"
)

// Identity is an authenticated user.
type Identity struct {
	// UserID is the store's user ID; 0 for anonymous visitors.
	UserID int64

	// Login is the user's login name.
	Login string

	// Roles are the user's role names.
	Roles []string

	Method AuthMethod

	// Claims holds the raw token claims, or application password details.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity holds role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// IsExpired reports whether the identity carries an expiry in the past.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous reports whether the identity is a logged-out visitor.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == AuthMethodAnonymous || id.UserID == 0
}

// AnonymousIdentity returns the identity of a logged-out visitor.
func AnonymousIdentity() *Identity {
	return &Identity{Method: AuthMethodAnonymous, Claims: map[string]any{}}
}

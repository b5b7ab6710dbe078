package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity in ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// UserIDFromContext returns the user ID of the identity in ctx, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return 0
}

package auth

import "context"

// CompositeAuthenticator tries authenticators in order and returns the
// first success. Authenticators that do not support the request are
// skipped; when every supporting one rejects it, the last rejection is
// returned.
type CompositeAuthenticator struct {
	Authenticators []Authenticator
}

// NewCompositeAuthenticator returns a composite over auths.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{Authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports reports whether any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c.Authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate runs the supporting authenticators in order. Internal
// errors stop the chain.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c.Authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, AuthMethodNone), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)

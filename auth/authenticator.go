package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines.
//   - Errors: Authenticate returns (nil, error) for internal errors and
//     (AuthResult, nil) for rejected credentials.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the credentials of one request.
type AuthRequest struct {
	Headers http.Header
}

// NewAuthRequest returns the AuthRequest for an HTTP request.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header}
}

// GetHeader returns the first value of a header, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Authenticated bool

	// Identity is set when Authenticated is true.
	Identity *Identity

	// Error explains a rejection.
	Error error

	Method AuthMethod
}

// AuthSuccess returns a successful result for identity.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: identity, Method: identity.Method}
}

// AuthFailure returns a rejected result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}

// AuthenticatorFunc adapts functions to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(ctx context.Context, req *AuthRequest) bool
	auth     func(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// NewAuthenticatorFunc returns an Authenticator built from functions.
func NewAuthenticatorFunc(
	name string,
	supports func(ctx context.Context, req *AuthRequest) bool,
	auth func(ctx context.Context, req *AuthRequest) (*AuthResult, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

func (f *AuthenticatorFunc) Name() string { return f.name }

func (f *AuthenticatorFunc) Supports(ctx context.Context, req *AuthRequest) bool {
	return f.supports(ctx, req)
}

func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	return f.auth(ctx, req)
}

var _ Authenticator = (*AuthenticatorFunc)(nil)

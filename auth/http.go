package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/blockpress/observe"
)

// ObjectIDFunc extracts the object a capability check applies to.
type ObjectIDFunc func(r *http.Request) int64

// Middleware authenticates each request and stores the identity in its
// context. Requests without credentials continue as anonymous visitors;
// rejected credentials get 401.
func Middleware(authn Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := NewAuthRequest(r)
			if authn == nil || !authn.Supports(ctx, req) {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, AnonymousIdentity())))
				return
			}

			res, err := authn.Authenticate(ctx, req)
			if err != nil {
				logger.Error(ctx, "authentication failed", observe.Field{Key: "error", Value: err.Error()})
				writeError(w, http.StatusInternalServerError, "auth_internal", "authentication failed")
				return
			}
			if !res.Authenticated {
				logger.Debug(ctx, "credentials rejected",
					observe.Field{Key: "method", Value: string(res.Method)},
					observe.Field{Key: "reason", Value: errString(res.Error)})
				w.Header().Set("WWW-Authenticate", `Basic realm="blockpress", Bearer`)
				writeError(w, http.StatusUnauthorized, "invalid_credentials", errString(res.Error))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

// RequireCapability rejects requests whose identity lacks capability:
// 401 for anonymous visitors and 403 otherwise. objectID may be nil.
func RequireCapability(authz Authorizer, capability string, objectID ObjectIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			req := &AuthzRequest{Subject: id, Capability: capability}
			if objectID != nil {
				req.ObjectID = objectID(r)
			}
			err := authz.Authorize(r.Context(), req)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case !errors.Is(err, ErrForbidden):
				writeError(w, http.StatusInternalServerError, "authz_internal", err.Error())
			case id.IsAnonymous():
				writeError(w, http.StatusUnauthorized, "rest_forbidden", "Sorry, you are not allowed to do that.")
			default:
				writeError(w, http.StatusForbidden, "rest_forbidden", "Sorry, you are not allowed to do that.")
			}
		})
	}
}

// httpRequestFor wraps the headers of req so net/http helpers such as
// BasicAuth can read them.
func httpRequestFor(req *AuthRequest) *http.Request {
	h := http.Header{}
	if req != nil && req.Headers != nil {
		h = req.Headers
	}
	return &http.Request{Header: h}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    map[string]int{"status": status},
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

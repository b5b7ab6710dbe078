package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer and Audience, when set, must match the iss and aud claims.
	Issuer   string
	Audience string

	// RolesClaim names the claim listing role names. Default: "roles".
	RolesClaim string

	// LoginClaim names the claim holding the login. Default: "login".
	LoginClaim string
}

// KeyProvider returns the key that verifies a token signed with kid.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider verifies every token with one HMAC secret.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider returns a provider for an HMAC secret.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the secret.
func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	if len(p.key) == 0 {
		return nil, errors.New("auth: empty signing key")
	}
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens. The sub claim holds the
// numeric user ID.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
}

// NewJWTAuthenticator returns a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if config.LoginClaim == "" {
		config.LoginClaim = "login"
	}
	return &JWTAuthenticator{config: config, keys: keys}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return "jwt" }

// Supports reports whether the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	_, ok := bearerToken(req)
	return ok
}

func bearerToken(req *AuthRequest) (string, bool) {
	scheme, token, ok := strings.Cut(req.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate validates the bearer token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	raw, ok := bearerToken(req)
	if !ok {
		return AuthFailure(ErrMissingCredentials, AuthMethodJWT), nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithIssuedAt(),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, AuthMethodJWT), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, AuthMethodJWT), nil
	case err != nil || !token.Valid:
		return AuthFailure(ErrInvalidCredentials, AuthMethodJWT), nil
	}

	identity, err := a.identity(claims)
	if err != nil {
		return AuthFailure(err, AuthMethodJWT), nil
	}
	return AuthSuccess(identity), nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) (*Identity, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: sub claim", ErrTokenMalformed)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: sub must be a user ID", ErrInvalidCredentials)
	}

	id := &Identity{
		UserID: userID,
		Method: AuthMethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Login, _ = claims[a.config.LoginClaim].(string)
	if roles, ok := claims[a.config.RolesClaim].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id, nil
}

// IssueToken signs an HS256 token for id that expires after ttl.
func (a *JWTAuthenticator) IssueToken(ctx context.Context, id *Identity, ttl time.Duration) (string, error) {
	key, err := a.keys.GetKey(ctx, "")
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":               strconv.FormatInt(id.UserID, 10),
		"iat":               now.Unix(),
		"exp":               now.Add(ttl).Unix(),
		a.config.LoginClaim: id.Login,
		a.config.RolesClaim: id.Roles,
	}
	if a.config.Issuer != "" {
		claims["iss"] = a.config.Issuer
	}
	if a.config.Audience != "" {
		claims["aud"] = a.config.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)

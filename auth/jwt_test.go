package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func bearer(token string) *AuthRequest {
	return &AuthRequest{Headers: http.Header{"Authorization": {"Bearer " + token}}}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("secret")))

	tests := []struct {
		name    string
		headers http.Header
		want    bool
	}{
		{"no authorization header", http.Header{}, false},
		{"bearer token", http.Header{"Authorization": {"Bearer abc"}}, true},
		{"lowercase scheme", http.Header{"Authorization": {"bearer abc"}}, true},
		{"empty token", http.Header{"Authorization": {"Bearer  "}}, false},
		{"basic", http.Header{"Authorization": {"Basic abc"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Supports(context.Background(), &AuthRequest{Headers: tt.headers}); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	const secret = "s3cret"
	a := NewJWTAuthenticator(JWTConfig{Issuer: "blockpress", Audience: "rest"}, NewStaticKeyProvider([]byte(secret)))
	now := time.Now()

	valid := jwt.MapClaims{
		"sub":   "42",
		"iss":   "blockpress",
		"aud":   "rest",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"login": "ada",
		"roles": []string{"editor"},
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", signHS256(t, secret, valid), nil},
		{"expired", signHS256(t, secret, jwt.MapClaims{"sub": "42", "iss": "blockpress", "aud": "rest", "exp": now.Add(-time.Minute).Unix()}), ErrTokenExpired},
		{"wrong issuer", signHS256(t, secret, jwt.MapClaims{"sub": "42", "iss": "other", "aud": "rest"}), ErrInvalidCredentials},
		{"wrong secret", signHS256(t, "nope", valid), ErrInvalidCredentials},
		{"malformed", "not.a.jwt", ErrTokenMalformed},
		{"non-numeric sub", signHS256(t, secret, jwt.MapClaims{"sub": "ada", "iss": "blockpress", "aud": "rest"}), ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if tt.wantErr != nil {
				if res.Authenticated {
					t.Fatal("expected rejection")
				}
				if !errors.Is(res.Error, tt.wantErr) {
					t.Errorf("Error = %v, want %v", res.Error, tt.wantErr)
				}
				return
			}
			if !res.Authenticated {
				t.Fatalf("rejected: %v", res.Error)
			}
			id := res.Identity
			if id.UserID != 42 || id.Login != "ada" || !id.HasRole("editor") {
				t.Errorf("identity = %+v", id)
			}
			if id.Method != AuthMethodJWT {
				t.Errorf("Method = %q", id.Method)
			}
			if id.ExpiresAt.IsZero() {
				t.Error("ExpiresAt not set")
			}
		})
	}
}

func TestJWTAuthenticator_RejectsNoneAlgorithm(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("secret")))
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil {
		t.Fatal(err)
	}
	if res.Authenticated {
		t.Fatal("alg=none must be rejected")
	}
}

func TestJWTAuthenticator_IssueToken(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Issuer: "blockpress"}, NewStaticKeyProvider([]byte("k")))
	ctx := context.Background()

	token, err := a.IssueToken(ctx, &Identity{UserID: 7, Login: "grace", Roles: []string{"author"}}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	res, err := a.Authenticate(ctx, bearer(token))
	if err != nil || !res.Authenticated {
		t.Fatalf("round trip failed: %v %v", err, res.Error)
	}
	if res.Identity.UserID != 7 || res.Identity.Login != "grace" || !res.Identity.HasRole("author") {
		t.Errorf("identity = %+v", res.Identity)
	}
}

func TestStaticKeyProvider_Empty(t *testing.T) {
	if _, err := NewStaticKeyProvider(nil).GetKey(context.Background(), ""); err == nil {
		t.Error("expected error for empty key")
	}
}

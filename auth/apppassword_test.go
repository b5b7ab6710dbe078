package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func basic(login, password string) *AuthRequest {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth(login, password)
	return NewAuthRequest(r)
}

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GeneratePassword()
	if len(a) != ApplicationPasswordLength {
		t.Errorf("len = %d", len(a))
	}
	if a == b {
		t.Error("passwords should differ")
	}
	if strings.Trim(a, passwordAlphabet) != "" {
		t.Errorf("unexpected characters in %q", a)
	}
}

func TestChunkPassword(t *testing.T) {
	if got := ChunkPassword("abcdefghij"); got != "abcd efgh ij" {
		t.Errorf("ChunkPassword() = %q", got)
	}
}

func TestApplicationPasswordAuthenticator(t *testing.T) {
	store := NewMemoryApplicationPasswords(bcrypt.MinCost)
	plain, ap, err := store.Create(3, "ada", "phone", []string{"author"})
	if err != nil {
		t.Fatal(err)
	}
	a := NewApplicationPasswordAuthenticator(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      *AuthRequest
		wantAuth bool
		wantErr  error
	}{
		{"plain", basic("ada", plain), true, nil},
		{"chunked with spaces", basic("ada", ChunkPassword(plain)), true, nil},
		{"wrong password", basic("ada", "nope"), false, ErrInvalidCredentials},
		{"unknown login", basic("bob", plain), false, ErrInvalidCredentials},
		{"no credentials", &AuthRequest{Headers: http.Header{"Authorization": {"Basic !!"}}}, false, ErrMissingCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if res.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v (%v)", res.Authenticated, res.Error)
			}
			if tt.wantErr != nil && !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", res.Error, tt.wantErr)
			}
			if tt.wantAuth {
				id := res.Identity
				if id.UserID != 3 || !id.HasRole("author") || id.Claims["app_id"] != ap.UUID {
					t.Errorf("identity = %+v", id)
				}
			}
		})
	}

	list, _ := store.ByLogin(ctx, "ada")
	if list[0].LastUsed.IsZero() {
		t.Error("LastUsed not recorded")
	}
}

func TestMemoryApplicationPasswords_Revoke(t *testing.T) {
	store := NewMemoryApplicationPasswords(bcrypt.MinCost)
	plain, ap, err := store.Create(1, "ada", "cli", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !store.Revoke(ap.UUID) {
		t.Fatal("Revoke() = false")
	}
	if store.Revoke(ap.UUID) {
		t.Error("second Revoke() = true")
	}
	res, _ := NewApplicationPasswordAuthenticator(store).Authenticate(context.Background(), basic("ada", plain))
	if res.Authenticated {
		t.Error("revoked password still authenticates")
	}
}

func TestMemoryApplicationPasswords_AddHashed(t *testing.T) {
	store := NewMemoryApplicationPasswords(bcrypt.MinCost)
	if err := store.AddHashed(&ApplicationPassword{Login: "ada", Hash: []byte("plain")}); err == nil {
		t.Error("expected error for non-bcrypt hash")
	}
	if _, err := store.Add(0, "", "x", "pw", nil); err == nil {
		t.Error("expected error without a user")
	}
}

package auth

import (
	"context"
	"slices"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestDefaultRegistry_Lists(t *testing.T) {
	if got := DefaultRegistry.ListAuthenticators(); !slices.Equal(got, []string{"application_password", "jwt"}) {
		t.Errorf("ListAuthenticators() = %v", got)
	}
	if got := DefaultRegistry.ListAuthorizers(); !slices.Equal(got, []string{"allow_all", "capabilities", "deny_all"}) {
		t.Errorf("ListAuthorizers() = %v", got)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	f := func(map[string]any, FactoryDeps) (Authorizer, error) { return AllowAllAuthorizer{}, nil }
	if err := r.RegisterAuthorizer("x", f); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterAuthorizer("x", f); err == nil {
		t.Error("duplicate registration should fail")
	}
	if _, err := r.CreateAuthenticator("missing", nil, FactoryDeps{}); err == nil {
		t.Error("unknown authenticator should fail")
	}
}

func TestJWTFactory(t *testing.T) {
	if _, err := DefaultRegistry.CreateAuthenticator("jwt", map[string]any{}, FactoryDeps{}); err == nil {
		t.Error("missing secret should fail")
	}
	if _, err := DefaultRegistry.CreateAuthenticator("jwt", map[string]any{"secret": "k", "bogus": 1}, FactoryDeps{}); err == nil {
		t.Error("unknown keys should fail")
	}
	a, err := DefaultRegistry.CreateAuthenticator("jwt", map[string]any{"secret": "k", "issuer": "bp"}, FactoryDeps{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Name() != "jwt" {
		t.Errorf("Name() = %q", a.Name())
	}
}

func TestApplicationPasswordFactory(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("abcd1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a, err := DefaultRegistry.CreateAuthenticator("application_password", map[string]any{
		"passwords": []any{
			map[string]any{"user_id": "8", "login": "ada", "hash": string(hash), "roles": []any{"editor"}},
		},
	}, FactoryDeps{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Authenticate(context.Background(), basic("ada", "abcd 1234"))
	if err != nil || !res.Authenticated {
		t.Fatalf("Authenticate() = %v, %v", res, err)
	}
	if res.Identity.UserID != 8 {
		t.Errorf("UserID = %d", res.Identity.UserID)
	}
}

func TestCapabilitiesFactory(t *testing.T) {
	authz, err := DefaultRegistry.CreateAuthorizer("capabilities", map[string]any{
		"roles": map[string]any{
			"author":   map[string]any{"deny": []any{"publish_posts"}},
			"reviewer": map[string]any{"inherits": []any{"contributor"}, "capabilities": []any{"moderate_comments"}},
		},
	}, FactoryDeps{})
	if err != nil {
		t.Fatal(err)
	}
	ca := authz.(*CapabilityAuthorizer)
	if ca.Roles().HasCap([]string{"author"}, "publish_posts") {
		t.Error("author publish_posts should be denied")
	}
	if !ca.Roles().HasCap([]string{"reviewer"}, "edit_posts", "moderate_comments") {
		t.Error("reviewer should inherit and extend contributor")
	}
}

package auth

import (
	"errors"
	"slices"
	"testing"
)

func TestDefaultRoles_HasCap(t *testing.T) {
	roles := DefaultRoles()

	tests := []struct {
		roles []string
		caps  []string
		want  bool
	}{
		{[]string{"subscriber"}, []string{"read"}, true},
		{[]string{"subscriber"}, []string{"edit_posts"}, false},
		{[]string{"contributor"}, []string{"edit_posts"}, true},
		{[]string{"contributor"}, []string{"publish_posts"}, false},
		{[]string{"author"}, []string{"publish_posts", "upload_files"}, true},
		{[]string{"author"}, []string{"edit_others_posts"}, false},
		{[]string{"editor"}, []string{"edit_others_posts", "publish_pages"}, true},
		{[]string{"editor"}, []string{"manage_options"}, false},
		{[]string{"administrator"}, []string{"manage_options", "edit_others_pages"}, true},
		{[]string{"subscriber", "author"}, []string{"publish_posts"}, true},
		{[]string{"ghost"}, []string{"read"}, false},
		{nil, []string{"exist"}, true},
		{[]string{"administrator"}, []string{"do_not_allow"}, false},
	}
	for _, tt := range tests {
		if got := roles.HasCap(tt.roles, tt.caps...); got != tt.want {
			t.Errorf("HasCap(%v, %v) = %v, want %v", tt.roles, tt.caps, got, tt.want)
		}
	}
}

func TestRoles_ExplicitDenyOverridesInheritance(t *testing.T) {
	roles := DefaultRoles()
	if err := roles.AddRole("reviewer", "Reviewer", []string{"moderate_comments"}, "editor"); err != nil {
		t.Fatal(err)
	}
	if err := roles.SetCap("reviewer", "publish_posts", false); err != nil {
		t.Fatal(err)
	}

	if !roles.HasCap([]string{"reviewer"}, "edit_others_posts") {
		t.Error("reviewer should inherit edit_others_posts")
	}
	if roles.HasCap([]string{"reviewer"}, "publish_posts") {
		t.Error("explicit deny should win")
	}

	caps, err := roles.Capabilities("reviewer")
	if err != nil {
		t.Fatal(err)
	}
	if granted, ok := caps["publish_posts"]; !ok || granted {
		t.Errorf("publish_posts = %v, %v", granted, ok)
	}
}

func TestRoles_Errors(t *testing.T) {
	roles := DefaultRoles()
	if err := roles.AddRole("editor", "Editor", nil); err == nil {
		t.Error("duplicate role should fail")
	}
	if err := roles.SetCap("ghost", "read", true); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("SetCap() error = %v", err)
	}
	if _, err := roles.Capabilities("ghost"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Capabilities() error = %v", err)
	}
	roles.RemoveRole("subscriber")
	if slices.Contains(roles.Names(), "subscriber") {
		t.Error("subscriber not removed")
	}
}

func TestRoles_InheritanceCycle(t *testing.T) {
	roles := NewRoles()
	_ = roles.AddRole("a", "A", []string{"x"}, "b")
	_ = roles.AddRole("b", "B", []string{"y"}, "a")
	if !roles.HasCap([]string{"a"}, "x", "y") {
		t.Error("cycle should resolve both capabilities")
	}
}

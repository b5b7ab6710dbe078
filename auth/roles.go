package auth

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Role is a named set of primitive capabilities.
type Role struct {
	Name         string
	DisplayName  string
	Capabilities map[string]bool

	// Inherits names roles whose granted capabilities this role also holds.
	// A capability explicitly set to false here still denies.
	Inherits []string
}

// Roles is a concurrency-safe role registry.
type Roles struct {
	mu    sync.RWMutex
	roles map[string]*Role
}

// NewRoles returns an empty registry.
func NewRoles() *Roles {
	return &Roles{roles: make(map[string]*Role)}
}

// DefaultRoles returns a registry holding the five stock roles.
func DefaultRoles() *Roles {
	r := NewRoles()
	read := []string{"read"}
	contributor := append(slices.Clone(read), "edit_posts", "delete_posts")
	author := append(slices.Clone(contributor),
		"upload_files", "publish_posts", "edit_published_posts", "delete_published_posts")
	editor := append(slices.Clone(author),
		"moderate_comments", "manage_categories", "manage_links", "unfiltered_html",
		"edit_others_posts", "delete_others_posts", "read_private_posts",
		"edit_private_posts", "delete_private_posts",
		"edit_pages", "edit_others_pages", "edit_published_pages", "edit_private_pages",
		"publish_pages", "delete_pages", "delete_others_pages",
		"delete_published_pages", "delete_private_pages", "read_private_pages")
	admin := []string{
		"switch_themes", "edit_themes", "activate_plugins", "edit_plugins",
		"edit_users", "edit_files", "manage_options", "import", "list_users",
		"create_users", "delete_users", "promote_users", "edit_theme_options",
		"update_core", "install_plugins",
	}

	_ = r.AddRole("subscriber", "Subscriber", read)
	_ = r.AddRole("contributor", "Contributor", contributor)
	_ = r.AddRole("author", "Author", author)
	_ = r.AddRole("editor", "Editor", editor)
	_ = r.AddRole("administrator", "Administrator", admin, "editor")
	return r
}

// AddRole registers a role granting caps and inheriting from parents.
// An existing role is left untouched and AddRole returns an error.
func (r *Roles) AddRole(name, displayName string, caps []string, inherits ...string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownRole)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[name]; ok {
		return fmt.Errorf("auth: role %q already exists", name)
	}
	role := &Role{
		Name:         name,
		DisplayName:  displayName,
		Capabilities: make(map[string]bool, len(caps)),
		Inherits:     slices.Clone(inherits),
	}
	for _, c := range caps {
		role.Capabilities[c] = true
	}
	r.roles[name] = role
	return nil
}

// RemoveRole deletes a role.
func (r *Roles) RemoveRole(name string) {
	r.mu.Lock()
	delete(r.roles, name)
	r.mu.Unlock()
}

// SetCap grants or explicitly denies cap on a role.
func (r *Roles) SetCap(role, capability string, grant bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ro, ok := r.roles[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	ro.Capabilities[capability] = grant
	return nil
}

// Names returns the role names in sorted order.
func (r *Roles) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.roles))
}

// Capabilities returns the resolved capability set of a role, inherited
// capabilities included.
func (r *Roles) Capabilities(role string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.roles[role]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	out := make(map[string]bool)
	r.resolve(role, out, map[string]bool{})
	return out, nil
}

// resolve fills out with the role's caps; the role's own entries win
// over inherited ones.
func (r *Roles) resolve(name string, out map[string]bool, seen map[string]bool) {
	if seen[name] {
		return
	}
	seen[name] = true
	role, ok := r.roles[name]
	if !ok {
		return
	}
	for _, parent := range role.Inherits {
		r.resolve(parent, out, seen)
	}
	maps.Copy(out, role.Capabilities)
}

// HasCap reports whether any of roles grants every capability in caps.
// Unknown roles grant nothing; the capability "exist" is always granted
// and "do_not_allow" never is.
func (r *Roles) HasCap(roles []string, caps ...string) bool {
	granted := make(map[string]bool)
	r.mu.RLock()
	for _, name := range roles {
		set := make(map[string]bool)
		r.resolve(name, set, map[string]bool{})
		for c, ok := range set {
			if ok {
				granted[c] = true
			}
		}
	}
	r.mu.RUnlock()

	for _, c := range caps {
		switch {
		case c == "do_not_allow":
			return false
		case c == "exist":
		case !granted[c]:
			return false
		}
	}
	return true
}

package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// FactoryDeps carries runtime dependencies that configuration cannot
// express.
type FactoryDeps struct {
	Posts PostLookup
}

// AuthenticatorFactory creates an authenticator from configuration.
type AuthenticatorFactory func(cfg map[string]any, deps FactoryDeps) (Authenticator, error)

// AuthorizerFactory creates an authorizer from configuration.
type AuthorizerFactory func(cfg map[string]any, deps FactoryDeps) (Authorizer, error)

// Registry manages authenticator and authorizer factories.
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]AuthenticatorFactory
	authorizers    map[string]AuthorizerFactory
}

// NewRegistry creates a new auth registry.
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]AuthenticatorFactory),
		authorizers:    make(map[string]AuthorizerFactory),
	}
}

// RegisterAuthenticator adds an authenticator factory.
func (r *Registry) RegisterAuthenticator(name string, factory AuthenticatorFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid authenticator registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authenticators[name]; exists {
		return fmt.Errorf("authenticator %q already registered", name)
	}

	r.authenticators[name] = factory
	return nil
}

// RegisterAuthorizer adds an authorizer factory.
func (r *Registry) RegisterAuthorizer(name string, factory AuthorizerFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid authorizer registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authorizers[name]; exists {
		return fmt.Errorf("authorizer %q already registered", name)
	}

	r.authorizers[name] = factory
	return nil
}

// CreateAuthenticator instantiates an authenticator by name.
func (r *Registry) CreateAuthenticator(name string, cfg map[string]any, deps FactoryDeps) (Authenticator, error) {
	r.mu.RLock()
	factory, ok := r.authenticators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("authenticator %q not found", name)
	}

	return factory(cfg, deps)
}

// CreateAuthorizer instantiates an authorizer by name.
func (r *Registry) CreateAuthorizer(name string, cfg map[string]any, deps FactoryDeps) (Authorizer, error) {
	r.mu.RLock()
	factory, ok := r.authorizers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("authorizer %q not found", name)
	}

	return factory(cfg, deps)
}

// ListAuthenticators returns registered authenticator names.
func (r *Registry) ListAuthenticators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.authenticators))
	for name := range r.authenticators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListAuthorizers returns registered authorizer names.
func (r *Registry) ListAuthorizers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.authorizers))
	for name := range r.authorizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JWTFactoryConfig is the configuration of the "jwt" authenticator.
type JWTFactoryConfig struct {
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
	RolesClaim string `mapstructure:"roles_claim"`
	LoginClaim string `mapstructure:"login_claim"`
	Secret     string `mapstructure:"secret"`
}

// ApplicationPasswordEntry is one preconfigured application password.
type ApplicationPasswordEntry struct {
	UserID int64    `mapstructure:"user_id"`
	Login  string   `mapstructure:"login"`
	Name   string   `mapstructure:"name"`
	Hash   string   `mapstructure:"hash"`
	Roles  []string `mapstructure:"roles"`
}

// ApplicationPasswordFactoryConfig is the configuration of the
// "application_password" authenticator.
type ApplicationPasswordFactoryConfig struct {
	Cost      int                        `mapstructure:"cost"`
	Passwords []ApplicationPasswordEntry `mapstructure:"passwords"`
}

// RoleConfig adds a role or extends a stock one.
type RoleConfig struct {
	DisplayName  string   `mapstructure:"display_name"`
	Capabilities []string `mapstructure:"capabilities"`
	Deny         []string `mapstructure:"deny"`
	Inherits     []string `mapstructure:"inherits"`
}

// CapabilitiesFactoryConfig is the configuration of the "capabilities"
// authorizer.
type CapabilitiesFactoryConfig struct {
	Roles map[string]RoleConfig `mapstructure:"roles"`
}

func decodeFactoryConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(cfg)
}

// BuildRoles returns the stock roles extended by cfg.
func BuildRoles(cfg map[string]RoleConfig) (*Roles, error) {
	roles := DefaultRoles()
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc := cfg[name]
		if !containsString(roles.Names(), name) {
			display := rc.DisplayName
			if display == "" {
				display = name
			}
			if err := roles.AddRole(name, display, nil, rc.Inherits...); err != nil {
				return nil, err
			}
		}
		for _, c := range rc.Capabilities {
			if err := roles.SetCap(name, c, true); err != nil {
				return nil, err
			}
		}
		for _, c := range rc.Deny {
			if err := roles.SetCap(name, c, false); err != nil {
				return nil, err
			}
		}
	}
	return roles, nil
}

func containsString(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}

// DefaultRegistry is the global auth registry with built-in factories.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.RegisterAuthenticator("jwt", func(cfg map[string]any, _ FactoryDeps) (Authenticator, error) {
		var c JWTFactoryConfig
		if err := decodeFactoryConfig(cfg, &c); err != nil {
			return nil, fmt.Errorf("jwt config: %w", err)
		}
		if c.Secret == "" {
			return nil, errors.New("jwt config: secret is required")
		}
		return NewJWTAuthenticator(JWTConfig{
			Issuer:     c.Issuer,
			Audience:   c.Audience,
			RolesClaim: c.RolesClaim,
			LoginClaim: c.LoginClaim,
		}, NewStaticKeyProvider([]byte(c.Secret))), nil
	})

	_ = DefaultRegistry.RegisterAuthenticator("application_password", func(cfg map[string]any, _ FactoryDeps) (Authenticator, error) {
		var c ApplicationPasswordFactoryConfig
		if err := decodeFactoryConfig(cfg, &c); err != nil {
			return nil, fmt.Errorf("application_password config: %w", err)
		}
		store := NewMemoryApplicationPasswords(c.Cost)
		for _, p := range c.Passwords {
			err := store.AddHashed(&ApplicationPassword{
				UserID: p.UserID,
				Login:  p.Login,
				Name:   p.Name,
				Hash:   []byte(p.Hash),
				Roles:  p.Roles,
			})
			if err != nil {
				return nil, fmt.Errorf("application_password config: %w", err)
			}
		}
		return NewApplicationPasswordAuthenticator(store), nil
	})

	_ = DefaultRegistry.RegisterAuthorizer("capabilities", func(cfg map[string]any, deps FactoryDeps) (Authorizer, error) {
		var c CapabilitiesFactoryConfig
		if err := decodeFactoryConfig(cfg, &c); err != nil {
			return nil, fmt.Errorf("capabilities config: %w", err)
		}
		roles, err := BuildRoles(c.Roles)
		if err != nil {
			return nil, err
		}
		return NewCapabilityAuthorizer(roles, deps.Posts), nil
	})

	_ = DefaultRegistry.RegisterAuthorizer("allow_all", func(map[string]any, FactoryDeps) (Authorizer, error) {
		return AllowAllAuthorizer{}, nil
	})

	_ = DefaultRegistry.RegisterAuthorizer("deny_all", func(map[string]any, FactoryDeps) (Authorizer, error) {
		return DenyAllAuthorizer{}, nil
	})
}

package blocktype

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/observe"
)

var validName = regexp.MustCompile(`^[a-z0-9-]+/[a-z0-9-]+$`)

// AttributeRegistrar adds attributes to a definition during registration,
// before its schema is compiled.
type AttributeRegistrar func(def *Definition)

// Registry maps block names to definitions.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: definitions are shared; callers must not mutate them after
// registration.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*Definition
	logger     observe.Logger
	registrars []AttributeRegistrar

	// Variations filters the result of Definition.GetVariations.
	Variations hooks.Filter[VariationSet]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger receiving developer notices.
func WithLogger(logger observe.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAttributeRegistrar adds a registrar run for every registration.
func WithAttributeRegistrar(fn AttributeRegistrar) Option {
	return func(r *Registry) {
		if fn != nil {
			r.registrars = append(r.registrars, fn)
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:  make(map[string]*Definition),
		logger: observe.NoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds def under def.Name and returns it.
//
// Invalid names, duplicate registrations and attribute schemas that fail
// to compile return a *RegistrationError and leave the registry unchanged.
func (r *Registry) Register(def *Definition) (*Definition, error) {
	name := ""
	if def != nil {
		name = def.Name
	}
	if err := checkName(name); err != nil {
		return nil, r.fail("register", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		return nil, r.fail("register", name, ErrAlreadyRegistered)
	}
	if def.registry != nil {
		return nil, r.fail("register", name, fmt.Errorf("%w: definition belongs to another registry", ErrAlreadyRegistered))
	}

	def.setup()
	for _, fn := range r.registrars {
		fn(def)
	}
	// Registrars may have changed the schema since it was last compiled.
	def.resetValidators()
	if _, err := def.compiledValidators(); err != nil {
		return nil, r.fail("register", name, err)
	}

	def.registry = r
	r.types[name] = def
	return def, nil
}

// RegisterName builds a definition from args and registers it.
func (r *Registry) RegisterName(name string, args Args) (*Definition, error) {
	return r.Register(&Definition{Name: name, Args: args})
}

// Unregister removes and returns the named definition.
func (r *Registry) Unregister(name string) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.types[name]
	if !ok {
		return nil, r.fail("unregister", name, ErrNotRegistered)
	}
	delete(r.types, name)
	def.registry = nil
	return def, nil
}

// Get returns the named definition, or nil.
func (r *Registry) Get(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[name]
}

// IsRegistered reports whether name is registered.
func (r *Registry) IsRegistered(name string) bool {
	return r.Get(name) != nil
}

// All returns a snapshot of every registered definition by name.
func (r *Registry) All() map[string]*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Definition, len(r.types))
	for k, v := range r.types {
		out[k] = v
	}
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for k := range r.types {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) fail(op, name string, err error) error {
	regErr := &RegistrationError{Op: op, Name: name, Err: err}
	function := "Registry.Register"
	if op == "unregister" {
		function = "Registry.Unregister"
	}
	observe.DoingItWrong(context.Background(), r.logger, function, err.Error(),
		observe.Field{Key: "block", Value: name})
	return regErr
}

func checkName(name string) error {
	switch {
	case name == "":
		return ErrInvalidName
	case strings.ToLower(name) != name:
		return ErrNameNotLowercase
	case !validName.MatchString(name):
		return ErrMissingNamespace
	}
	return nil
}

package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix starts a secret reference.
const RefPrefix = "secretref:"

// Resolver expands environment variables and secret references.
type Resolver struct {
	providers map[string]Provider

	// strict rejects references that resolve to "".
	strict bool
}

// NewResolver creates a resolver over providers.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewDefaultResolver returns a strict resolver over every provider in
// DefaultRegistry; file references are relative to dir.
func NewDefaultResolver(dir string) *Resolver {
	providers, err := DefaultRegistry.CreateAll(map[string]any{"dir": dir})
	if err != nil {
		// The built-in factories cannot fail.
		return NewResolver(true, EnvProvider{}, FileProvider{Dir: dir})
	}
	return NewResolver(true, providers...)
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p != nil {
		r.providers[p.Name()] = p
	}
}

// ResolveValue expands value. A nil Resolver only expands the environment.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil || r == nil {
		return expanded, err
	}
	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, name, ref)
	}
	if !strings.Contains(expanded, RefPrefix) {
		return expanded, nil
	}
	var firstErr error
	out := inlineRef.ReplaceAllStringFunc(expanded, func(m string) string {
		name, ref, _ := ParseSecretRef(m)
		v, err := r.resolve(ctx, name, ref)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveMap resolves each value of input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ResolveTree resolves every string inside a decoded configuration tree
// of maps and slices, returning a new tree.
func (r *Resolver) ResolveTree(ctx context.Context, tree map[string]any) (map[string]any, error) {
	v, err := r.resolveAny(ctx, tree, "")
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}

func (r *Resolver) resolveAny(ctx context.Context, v any, path string) (any, error) {
	switch t := v.(type) {
	case string:
		s, err := r.ResolveValue(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", strings.TrimPrefix(path, "."), err)
		}
		return s, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			rv, err := r.resolveAny(ctx, e, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := r.resolveAny(ctx, e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

// ParseSecretRef splits a whole-value reference secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:[^:\s]+:\S+`)

func (r *Resolver) resolve(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("secret: provider %q is not registered", name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("secret: provider %q returned an empty value for %q", name, ref)
	}
	return v, nil
}

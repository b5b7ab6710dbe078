package config

import (
	"context"
	"fmt"

	"github.com/jonwraymond/blockpress/secret"
)

// ResolveSecrets replaces secret references and ${VAR} expansions in the
// auth provider settings. A nil resolver uses the env and file providers
// rooted at Auth.SecretsDir.
func ResolveSecrets(ctx context.Context, cfg *Config, r *secret.Resolver) error {
	if r == nil {
		r = secret.NewDefaultResolver(cfg.Auth.SecretsDir)
	}
	for i := range cfg.Auth.Authenticators {
		p := &cfg.Auth.Authenticators[i]
		resolved, err := r.ResolveTree(ctx, p.Config)
		if err != nil {
			return fmt.Errorf("config: auth.authenticators[%s]: %w", p.Name, err)
		}
		p.Config = resolved
	}
	resolved, err := r.ResolveTree(ctx, cfg.Auth.Authorizer.Config)
	if err != nil {
		return fmt.Errorf("config: auth.authorizer[%s]: %w", cfg.Auth.Authorizer.Name, err)
	}
	cfg.Auth.Authorizer.Config = resolved
	return nil
}

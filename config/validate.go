package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = newValidator()

// newValidator reports fields by their configuration key names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg against its field constraints and the cross-field
// rules the tags cannot express.
func Validate(cfg *Config) error {
	var problems []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if cfg.Cache.MaxTTL > 0 && cfg.Cache.DefaultTTL > cfg.Cache.MaxTTL {
		problems = append(problems, "cache.default_ttl exceeds cache.max_ttl")
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.Rate <= 0 {
		problems = append(problems, "server.rate_limit.rate must be positive when enabled")
	}
	seen := make(map[string]bool, len(cfg.Auth.Authenticators))
	for _, a := range cfg.Auth.Authenticators {
		if a.Name != "" && seen[a.Name] {
			problems = append(problems, fmt.Sprintf("auth.authenticators: %q listed twice", a.Name))
		}
		seen[a.Name] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// fieldPath turns "Config.server.rate_limit.rate" into "server.rate_limit.rate".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// Package config loads blockpress service configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML,
// TOML or JSON file, and BLOCKPRESS_* environment variables (for example
// BLOCKPRESS_SERVER_ADDR or BLOCKPRESS_LOGGING_LEVEL). Durations accept
// Go duration strings such as "30s" or "5m".
//
// Authenticator and authorizer settings may contain secret references
// ("secretref:env:JWT_SECRET", "secretref:file:jwt.key") and ${VAR}
// expansions; ResolveSecrets replaces them before the auth registry sees
// the values. A literal dollar sign, as in an inline bcrypt hash, is
// written "$$".
//
// A Watcher reloads the file on change and reports the new configuration
// to its listeners; LogLevelListener applies the logging level to a
// running logger.
package config

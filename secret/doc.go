// Package secret resolves secret references in configuration values.
//
// A value of the form secretref:<provider>:<ref> is replaced by what the
// named provider returns for ref; references may also appear inside a
// longer value ("Bearer secretref:env:TOKEN"). Two providers are built in:
//
//	secretref:env:BLOCKPRESS_JWT_SECRET   the environment variable
//	secretref:file:/run/secrets/jwt       the file contents, trailing newline trimmed
//
// Before references are resolved, ${VAR} is expanded from the environment
// and a missing variable is an error; $$ escapes a literal dollar sign.
package secret

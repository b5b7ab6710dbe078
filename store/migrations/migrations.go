// Package migrations embeds the SQL schema migrations applied by the store.
package migrations

import "embed"

// FS holds the migration files in golang-migrate's naming scheme.
//
//go:embed *.sql
var FS embed.FS

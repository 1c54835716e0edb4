// Package migrations holds the Postgres schema.
package migrations

import "embed"

// FS contains the ordered *.sql files applied by cmd/migrate_apply.
//
//go:embed *.sql
var FS embed.FS

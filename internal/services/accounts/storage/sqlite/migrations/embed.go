package migrations

import "embed"

// FS contains embedded SQLite migrations for account storage.
//
//go:embed *.sql
var FS embed.FS

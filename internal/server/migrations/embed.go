// Package migrations embeds the goose SQL migrations for the accounts schema.
// The same files are applied to PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

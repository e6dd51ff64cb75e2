// Package migrations embeds the SQLite schema so binaries and tests carry it.
package migrations

import "embed"

// FS holds every NNN_name.sql migration
//
//go:embed *.sql
var FS embed.FS

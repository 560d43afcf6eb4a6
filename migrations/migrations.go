// Package migrations embeds the SQL schema migrations so binaries and tests
// apply the same files golang-migrate reads from disk.
package migrations

import "embed"

// FS holds every *.sql migration.
//
//go:embed *.sql
var FS embed.FS

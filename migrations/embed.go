// Package migrations embeds the SQL schema migrations applied by
// golang-migrate, either at API start-up or through cmd/migrate.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql pairs.
//
//go:embed *.sql
var FS embed.FS

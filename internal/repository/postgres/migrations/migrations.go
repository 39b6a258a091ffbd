// Package migrations embeds the SQL schema for the Postgres snapshot store.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied in filename order.
//
//go:embed *.sql
var FS embed.FS

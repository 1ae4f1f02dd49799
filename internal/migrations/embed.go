// Package migrations embeds the schema for tables this service owns.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

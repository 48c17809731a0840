// Package migrations embeds the goose SQL migrations that are applied
// by the repository manager at server startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

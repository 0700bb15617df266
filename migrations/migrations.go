// Package migrations embeds the goose SQL migrations for the vehicle catalog.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embarque les fichiers SQL goose dans le binaire.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations holds the schema applied at startup when
// DB_AUTO_MIGRATE is set.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

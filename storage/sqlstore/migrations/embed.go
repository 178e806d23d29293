// Package migrations contains embedded SQL migrations for each supported
// database dialect, one directory per dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql mysql/*.sql
var FS embed.FS

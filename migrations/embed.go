// Package migrations carries the SQL schema scripts applied at startup
package migrations

import "embed"

// FS holds the numbered *.sql scripts
//
//go:embed *.sql
var FS embed.FS

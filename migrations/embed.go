// Package migrations holds the schema of the returns database. The files
// are embedded so the migrate command and integration tests apply the same
// SQL without depending on the working directory.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file of this directory
//
//go:embed *.sql
var FS embed.FS

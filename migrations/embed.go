// Package migrations embeds the SQL schema into the binary.
//
// Importing it for side effects registers the files with the database
// package, so db.Migrate works without the .sql files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

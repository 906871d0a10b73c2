package billingwebhooks

import (
	"embed"
	"io/fs"
)

// migrationsFS contains the SQL schema migrations for the account store.
//
//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the migration tree rooted at the SQL files, ready
// for persistence-bun registration.
func GetMigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return migrationsFS
	}
	return sub
}

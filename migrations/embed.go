// Package migrations embeds the SQL schema for every supported database driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// FS returns the migration files for the driver ("postgres" or "sqlite").
func FS(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlite":
		return fs.Sub(files, driver)
	}
	return nil, fmt.Errorf("migrations: unsupported driver %q", driver)
}

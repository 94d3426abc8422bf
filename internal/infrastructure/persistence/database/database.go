// Package database wraps the SQL connection handle shared by the tenant
// repositories and carries the slow-query instrumentation they use.
package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB wraps a standard SQL connection. Repositories take this instead of a
// bare *sql.DB so the driver imports live in one place.
type DB struct {
	*sql.DB
}

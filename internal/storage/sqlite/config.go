// Package sqlite implements the upload audit log on SQLite.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:audit.db?cache=shared"
	//   "audit.db" (interpreted by the driver)
	DSN string

	// Table is the audit table name.
	Table string
}

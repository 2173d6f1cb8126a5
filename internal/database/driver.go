package database

import "strings"

// Driver represents a document-store backend type.
type Driver string

const (
	// DriverMemory keeps documents in process memory.
	DriverMemory Driver = "memory"
	// DriverSQLite stores JSON documents in a SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores JSONB documents in PostgreSQL.
	DriverPostgres Driver = "postgres"
	// DriverMongo uses MongoDB collections directly.
	DriverMongo Driver = "mongo"
)

// String returns the string representation of the driver.
func (d Driver) String() string {
	return string(d)
}

// DetectDriver parses a connection string and returns the driver type.
// Returns DriverSQLite for empty URLs to enable zero-config local mode.
func DetectDriver(url string) Driver {
	if url == "" {
		return DriverSQLite
	}

	if strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://") {
		return DriverMongo
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres
	}

	if strings.HasPrefix(url, "sqlite://") ||
		strings.HasPrefix(url, "file:") ||
		strings.HasSuffix(url, ".db") ||
		strings.HasSuffix(url, ".sqlite") ||
		strings.HasSuffix(url, ".sqlite3") {
		return DriverSQLite
	}

	if url == ":memory:" || url == "memory://" {
		return DriverMemory
	}

	return DriverPostgres
}

// IsValid returns true if the driver is a known type.
func (d Driver) IsValid() bool {
	switch d {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverMongo:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the driver is served through a Connection.
func (d Driver) IsSQL() bool {
	return d == DriverSQLite || d == DriverPostgres
}

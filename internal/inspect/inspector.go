// Package inspect reads table, foreign-key, and uniqueness metadata from a
// live database. Each supported dialect maps its catalog queries onto the
// same fact shape so the relationship classifier never sees dialect detail.
package inspect

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrSchemaUnavailable signals that the live schema could not be read.
// Callers fall back to migration parsing instead of treating this as fatal.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// ErrUnknownDriver is returned when no dialect matches the driver name.
var ErrUnknownDriver = errors.New("unknown database driver")

// ForeignKeyFact is one piece of raw foreign-key evidence scoped to a single
// source table: column references referencedTable(referencedColumn).
type ForeignKeyFact struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// IncomingFact is a foreign-key fact seen from the referenced table's side.
type IncomingFact struct {
	SourceTable string
	ForeignKeyFact
}

// Inspector reads schema metadata for a single connected database.
type Inspector interface {
	// ListTables returns all base table names.
	ListTables() ([]string, error)

	// HasTable reports whether the table exists.
	HasTable(table string) (bool, error)

	// ForeignKeysOf returns the foreign keys declared on table.
	ForeignKeysOf(table string) ([]ForeignKeyFact, error)

	// ForeignKeysReferencing returns foreign keys on other tables that
	// point at table.
	ForeignKeysReferencing(table string) ([]IncomingFact, error)

	// IsUnique reports whether column carries a single-column uniqueness
	// constraint on table. Dialects that cannot determine this cheaply
	// report false; the classifier treats that as "not unique".
	IsUnique(table, column string) (bool, error)
}

// New returns the Inspector for the given driver name.
// Supported drivers: "mysql", "postgres" (pgx), "sqlite3".
func New(db *sql.DB, driver string) (Inspector, error) {
	switch driver {
	case "mysql":
		return &mysqlInspector{db: db}, nil
	case "postgres", "pgx":
		return &postgresInspector{db: db, schema: "public"}, nil
	case "sqlite3", "sqlite":
		return &sqliteInspector{db: db}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// unavailable wraps a catalog query failure so callers can detect the
// fallback condition with errors.Is.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
}

func hasTable(tables []string, table string) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}

package mythdb

import "errors"

var (
	// ErrNotFound is returned when no row matches a primary key.
	ErrNotFound = errors.New("row not found")

	// ErrSchemaUnknown is returned when settings.DBSchemaVer is missing or
	// unreadable and no schema version is configured.
	ErrSchemaUnknown = errors.New("database schema version unknown")

	// ErrSchemaMismatch is returned when a record decoded at one schema
	// version is written to a database at another.
	ErrSchemaMismatch = errors.New("record schema does not match database")

	// ErrNotTable is returned for field sets without a backing table.
	ErrNotTable = errors.New("field set has no table")

	// ErrNoKey is returned when a record lacks a primary key column at the
	// database's schema version, so its row cannot be addressed.
	ErrNoKey = errors.New("primary key not present at schema version")

	// ErrWrongSet is returned when a record of another field set is passed
	// to a repository.
	ErrWrongSet = errors.New("record belongs to another field set")
)

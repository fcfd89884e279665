package mysqlmcp

import "errors"

var (
	// ErrConnect indicates the database could not be reached. New returns
	// it when the startup ping fails; it is the only error that should
	// terminate the process.
	ErrConnect = errors.New("cannot reach the database")

	// ErrTableNotFound indicates a referenced table does not exist in the
	// configured database. Raised from the catalog existence check, never
	// inferred from a failed query.
	ErrTableNotFound = errors.New("table not found")
)

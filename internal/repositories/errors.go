package repositories

import (
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It wraps the more specific driver error.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, so repository methods
// can run standalone or inside a service-owned transaction.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Tx is a transaction handle. Repositories receive it as a SQLExecutor; the
// owning service commits or rolls it back.
type Tx interface {
	SQLExecutor
	Commit() error
	Rollback() error
}

// Database is what services hold instead of a bare *sql.DB: it runs
// statements directly and begins transactions.
type Database interface {
	SQLExecutor
	Begin() (Tx, error)
}

type sqlDatabase struct {
	*sql.DB
}

// NewDatabase adapts *sql.DB to Database.
func NewDatabase(db *sql.DB) Database {
	return sqlDatabase{DB: db}
}

func (d sqlDatabase) Begin() (Tx, error) {
	return d.DB.Begin()
}

package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors returned by this package. Wrapped errors can be checked
// with errors.Is.
var (
	// ErrTooManyAttempts is returned when temporary-table creation hits a
	// name collision on every attempt.
	ErrTooManyAttempts = errors.New("tabledb: too many attempts to create temporary table")

	// ErrUnboundedDelete is returned by Table.Delete when no filter is
	// given. A full-table delete must be requested through DeleteAll.
	ErrUnboundedDelete = errors.New("tabledb: delete without filters would remove all rows (use DeleteAll)")

	// ErrClosed is returned by operations on a closed Database.
	ErrClosed = errors.New("tabledb: database is closed")
)

// erTableExists is MySQL error 1050 (ER_TABLE_EXISTS_ERROR), raised by
// CREATE TABLE without IF NOT EXISTS when the name is taken. It is the
// only error class the temporary-table factory retries on.
const erTableExists = 1050

func isTableExistsErr(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == erTableExists
}

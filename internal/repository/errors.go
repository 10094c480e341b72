// Package repository holds the SQL data access layer.  Every repository
// wraps a *sql.DB and speaks the MySQL/SQLite common subset with `?`
// placeholders.  The sentinel values below let higher layers such as the
// check-in service and the HTTP handlers tell failure scenarios apart.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrUnknownKind is returned when a reservation kind names no table.
var ErrUnknownKind = errors.New("unknown reservation kind")

// MySQL server error numbers for schema lookups.
const (
	mysqlErrBadField    = 1054 // ER_BAD_FIELD_ERROR: unknown column
	mysqlErrNoSuchTable = 1146 // ER_NO_SUCH_TABLE
)

// notFound maps sql.ErrNoRows onto ErrNotFound and passes anything else
// through untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// IsMissingSchema reports whether err means a column or table referenced by
// the statement does not exist in this deployment.
func IsMissingSchema(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrBadField || myErr.Number == mysqlErrNoSuchTable
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") || strings.Contains(msg, "no such table")
}

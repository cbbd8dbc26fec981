package repository

import (
	"database/sql"
)

// SQLExecutor is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories run their queries against either without knowing whether a
// transaction is in flight; the Store decides which one they get.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var (
	_ SQLExecutor = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)

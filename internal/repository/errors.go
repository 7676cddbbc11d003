// Package repository implements the ports interfaces on MySQL. Driver
// errors are translated into apperr kinds here so services never inspect
// driver types.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/orderdesk/internal/apperr"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced  = 1451
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository can
// run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translate maps driver errors to apperr kinds. notFound is the message used
// when the query matched no rows.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFound)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return apperr.Conflict("duplicate entry", err)
		case mysqlNoReferencedRow:
			return apperr.Validation("referenced record does not exist", nil)
		case mysqlRowIsReferenced, mysqlLockWaitTimeout, mysqlDeadlockDetected:
			return apperr.Conflict("conflicting concurrent update", err)
		}
	}
	return apperr.Internal("database error", err)
}

// lastID returns the auto-increment id of an INSERT.
func lastID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Internal("last insert id", err)
	}
	return uint64(id), nil
}

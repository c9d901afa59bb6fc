package uow

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/pool"
)

// StatementError reports a statement the store rejected, or a failed
// begin/commit.
type StatementError struct {
	Op    string // begin, exec, query, insert, commit
	Query string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// IsStatement checks if the error came from the store rejecting a statement.
func IsStatement(err error) bool {
	var se *StatementError
	return errors.As(err, &se)
}

// Tx is the transaction handed to a Handler. Statements run in order on the
// leased connection.
type Tx struct {
	tx      *sql.Tx
	conn    *pool.Conn
	dialect dialect.Dialect
}

// Dialect returns the SQL dialect of the store.
func (t *Tx) Dialect() dialect.Dialect {
	return t.dialect
}

// Exec runs a statement that returns no rows.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, t.wrap("exec", query, err)
	}
	return res, nil
}

// Get scans the first row of query into dest. It reports false, with no
// error, when the query returns no rows.
func (t *Tx) Get(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, t.wrap("query", query, err)
	}
	return true, nil
}

// Select runs query and calls scan once per row.
func (t *Tx) Select(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return t.wrap("query", query, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return t.wrap("scan", query, err)
		}
	}
	if err := rows.Err(); err != nil {
		return t.wrap("query", query, err)
	}
	return nil
}

// Insert runs an INSERT rendered by dialect.InsertSQL and returns the new
// identity.
func (t *Tx) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	if t.dialect.ReturnsID() {
		var id int64
		if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, t.wrap("insert", query, err)
		}
		return id, nil
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, t.wrap("insert", query, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, t.wrap("insert", query, err)
	}
	return id, nil
}

func (t *Tx) wrap(op, query string, err error) error {
	markIfBroken(t.conn, err)
	return &StatementError{Op: op, Query: query, Err: err}
}

// markIfBroken flags the connection for discard when err means the session
// itself is gone.
func markIfBroken(c *pool.Conn, err error) {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		c.MarkBroken()
	}
}

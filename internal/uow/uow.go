// Package uow implements the per-request unit of work: lease a pooled
// connection, run the handler inside one transaction, commit or roll back,
// and return the connection to the pool exactly once.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/metrics"
	"github.com/joao-brasil/collectflow/internal/pool"
	"go.uber.org/zap"
)

// Leaser lends and reclaims connections. *pool.Pool implements it.
type Leaser interface {
	Acquire(ctx context.Context) (*pool.Conn, error)
	Release(c *pool.Conn)
}

// Handler is the body of a unit of work. It must not commit, roll back or
// release; returning an error rolls the transaction back.
type Handler func(ctx context.Context, tx *Tx) error

// UnitOfWork runs handlers transactionally over a shared pool.
type UnitOfWork struct {
	pool    Leaser
	dialect dialect.Dialect
	log     *zap.Logger
	txOpts  *sql.TxOptions
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithLogger sets the logger used for rollback failures.
func WithLogger(l *zap.Logger) Option {
	return func(u *UnitOfWork) { u.log = l }
}

// WithTxOptions sets the options passed to BeginTx.
func WithTxOptions(o *sql.TxOptions) Option {
	return func(u *UnitOfWork) { u.txOpts = o }
}

// New creates a UnitOfWork leasing from p and rendering SQL for d.
func New(p Leaser, d dialect.Dialect, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		pool:    p,
		dialect: d,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Dialect returns the SQL dialect of the underlying store.
func (u *UnitOfWork) Dialect() dialect.Dialect {
	return u.dialect
}

// Do runs fn in a transaction on a leased connection.
//
// If the lease fails, fn is not run and nothing is released. If fn returns
// nil the transaction is committed and a commit failure is returned as a
// *StatementError. If fn returns an error or panics the transaction is
// rolled back; a rollback failure is logged and the handler's error is
// returned. The connection is released once on every path.
func (u *UnitOfWork) Do(ctx context.Context, fn Handler) (err error) {
	start := time.Now()

	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues("acquire_failed").Inc()
		return err
	}
	defer func() {
		u.pool.Release(conn)
		metrics.TransactionDuration.Observe(time.Since(start).Seconds())
	}()

	sqlTx, err := conn.DB().BeginTx(ctx, u.txOpts)
	if err != nil {
		markIfBroken(conn, err)
		metrics.TransactionsTotal.WithLabelValues("begin_failed").Inc()
		return &StatementError{Op: "begin", Err: err}
	}
	tx := &Tx{tx: sqlTx, conn: conn, dialect: u.dialect}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
			u.rollback(conn, sqlTx, err)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		u.rollback(conn, sqlTx, err)
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		markIfBroken(conn, err)
		metrics.TransactionsTotal.WithLabelValues("commit_failed").Inc()
		return &StatementError{Op: "commit", Err: err}
	}
	metrics.TransactionsTotal.WithLabelValues("committed").Inc()
	return nil
}

// Run is Do for handlers producing a value. The value is returned only
// after a successful commit.
func Run[T any](ctx context.Context, u *UnitOfWork, fn func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	var out T
	err := u.Do(ctx, func(ctx context.Context, tx *Tx) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// rollback rolls sqlTx back, logging a failure instead of returning it.
// sql.ErrTxDone is not a failure: database/sql already rolled back the
// transaction when the request context was cancelled.
func (u *UnitOfWork) rollback(conn *pool.Conn, sqlTx *sql.Tx, cause error) {
	metrics.TransactionsTotal.WithLabelValues("rolled_back").Inc()
	err := sqlTx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		u.log.Debug("transaction already finished", zap.Uint64("conn", conn.ID()), zap.NamedError("cause", cause))
		return
	}
	if err != nil {
		markIfBroken(conn, err)
		metrics.TransactionsTotal.WithLabelValues("rollback_failed").Inc()
		u.log.Error("rollback failed",
			zap.Uint64("conn", conn.ID()),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}

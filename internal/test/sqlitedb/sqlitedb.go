// Package sqlitedb provides file-backed SQLite databases with the gateway
// schema for tests.
package sqlitedb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joao-brasil/collectflow/internal/pool"
	"github.com/joao-brasil/collectflow/pkg/datasource"
)

//go:embed schema.sql
var schema string

// Source creates an empty database in a temporary directory and returns a
// data source pointing at it.
func Source(t testing.TB, maxConns int) *datasource.DataSource {
	t.Helper()

	path := filepath.Join(t.TempDir(), "collectflow.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	return &datasource.DataSource{
		Name:           t.Name(),
		Driver:         "sqlite3",
		DSN:            dsn,
		MaxConnections: maxConns,
	}
}

// New returns a pool over a fresh database. The pool is closed when the
// test ends.
func New(t testing.TB, maxConns int, opts ...pool.Option) *pool.Pool {
	t.Helper()
	p := pool.New(Source(t, maxConns), opts...)
	t.Cleanup(func() { p.Close() })
	return p
}

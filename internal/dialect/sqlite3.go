package dialect

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func init() {
	Register("sqlite3", &sqlite3{})
}

type sqlite3 struct{}

func (d *sqlite3) Name() string { return "sqlite3" }

func (d *sqlite3) Quote(name string) string {
	return fmt.Sprintf("\"%s\"", name)
}

func (d *sqlite3) Table(_, name string) string {
	return d.Quote(name)
}

func (d *sqlite3) Placeholder(int) string { return "?" }

func (d *sqlite3) InsertSQL(table string, columns []string, idColumn string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, QuoteAll(d, columns), placeholders(d, len(columns)), d.Quote(idColumn))
}

func (d *sqlite3) ReturnsID() bool { return true }

package dialect

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	Register("pgx", &postgres{})
}

type postgres struct{}

func (d *postgres) Name() string { return "pgx" }

func (d *postgres) Quote(name string) string {
	return fmt.Sprintf("\"%s\"", name)
}

func (d *postgres) Table(_, name string) string {
	return d.Quote(name)
}

func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgres) InsertSQL(table string, columns []string, idColumn string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, QuoteAll(d, columns), placeholders(d, len(columns)), d.Quote(idColumn))
}

func (d *postgres) ReturnsID() bool { return true }

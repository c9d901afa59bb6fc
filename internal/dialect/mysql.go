package dialect

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	Register("mysql", &mysql{})
}

type mysql struct{}

func (d *mysql) Name() string { return "mysql" }

func (d *mysql) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *mysql) Table(_, name string) string {
	return d.Quote(name)
}

func (d *mysql) Placeholder(int) string { return "?" }

func (d *mysql) InsertSQL(table string, columns []string, _ string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, QuoteAll(d, columns), placeholders(d, len(columns)))
}

func (d *mysql) ReturnsID() bool { return false }

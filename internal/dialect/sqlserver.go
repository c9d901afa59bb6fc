package dialect

import (
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
)

func init() {
	Register("sqlserver", &sqlserver{})
}

type sqlserver struct{}

func (d *sqlserver) Name() string { return "sqlserver" }

func (d *sqlserver) Quote(name string) string {
	return fmt.Sprintf("[%s]", name)
}

func (d *sqlserver) Table(schema, name string) string {
	if schema == "" {
		return d.Quote(name)
	}
	return d.Quote(schema) + "." + d.Quote(name)
}

func (d *sqlserver) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// InsertSQL reads the new identity with SCOPE_IDENTITY in the same batch.
// OUTPUT INSERTED without INTO is rejected on tables with triggers, and
// @@IDENTITY would report ids inserted by those triggers.
func (d *sqlserver) InsertSQL(table string, columns []string, _ string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s); SELECT CAST(SCOPE_IDENTITY() AS bigint)",
		table, QuoteAll(d, columns), placeholders(d, len(columns)))
}

func (d *sqlserver) ReturnsID() bool { return true }

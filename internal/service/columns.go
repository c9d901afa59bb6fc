// Package service holds the operation handlers of the gateway. Every
// operation runs inside one unit of work; handlers issue statements and
// signal business-rule rejections as *DomainError, and never commit, roll
// back or release themselves.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/uow"
)

const (
	tablePratiche  = "tabella pratiche"
	tableMovimenti = "Movimenti"
	tableEMail     = "tblEMail"
	tableSMS       = "sms"

	schemaDBO = "dbo"
)

// field pairs a column with the Go value bound to it: a pointer to the
// record field when scanning, the field value when inserting. Column order
// and decode order come from the same list, so they cannot drift apart.
type field struct {
	col string
	val any
}

func columns(fs []field) []string {
	cols := make([]string, len(fs))
	for i, f := range fs {
		cols[i] = f.col
	}
	return cols
}

func values(fs []field) []any {
	vals := make([]any, len(fs))
	for i, f := range fs {
		vals[i] = f.val
	}
	return vals
}

// selectSQL renders SELECT cols FROM table WHERE cond, with '?' markers in
// cond rebound for d.
func selectSQL(d dialect.Dialect, table string, cols []string, cond string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", dialect.QuoteAll(d, cols), table)
	if cond != "" {
		q += " WHERE " + cond
	}
	return dialect.Rebind(d, q)
}

func where(d dialect.Dialect, conds ...string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = d.Quote(c) + " = ?"
	}
	return strings.Join(parts, " AND ")
}

// praticaExistsSQL renders the existence check shared by every resource
// attached to a practice.
func praticaExistsSQL(d dialect.Dialect) string {
	return selectSQL(d, d.Table("", tablePratiche), []string{"contatore"}, where(d, "contatore"))
}

func praticaExists(ctx context.Context, tx *uow.Tx, query string, contatore int64) (bool, error) {
	var id int64
	return tx.Get(ctx, query, []any{contatore}, &id)
}

// Package dialect renders the few SQL fragments that differ between the
// stores the gateway can run against: identifier quoting, table
// qualification, ordinal placeholders and identity retrieval on insert.
package dialect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Dialect represents database-specific SQL rendering.
type Dialect interface {
	// Name returns the database/sql driver name the dialect is registered for.
	Name() string
	// Quote wraps an identifier (column or table) in database-specific quotes.
	Quote(name string) string
	// Table returns the reference for table name in schema. Only stores with
	// schemas honour schema.
	Table(schema, name string) string
	// Placeholder returns the bind marker for the 1-based argument index.
	Placeholder(index int) string
	// InsertSQL renders an INSERT of columns into table. When ReturnsID is
	// true the statement yields one row holding idColumn of the new record.
	InsertSQL(table string, columns []string, idColumn string) string
	// ReturnsID reports whether InsertSQL returns the identity as a row, as
	// opposed to it being read from sql.Result.LastInsertId.
	ReturnsID() bool
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// Register registers a dialect for a driver name.
func Register(driver string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[driver] = d
}

// Get retrieves a registered dialect by driver name.
func Get(driver string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[driver]
	return d, ok
}

// For is Get with an error listing the supported drivers.
func For(driver string) (Dialect, error) {
	if d, ok := Get(driver); ok {
		return d, nil
	}
	return nil, fmt.Errorf("no SQL dialect for driver %q (supported: %s)",
		driver, strings.Join(Drivers(), ", "))
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rebind rewrites '?' markers in query into the dialect's placeholders.
// Queries must not contain '?' inside string literals.
func Rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// QuoteAll quotes each name and joins them with ", ".
func QuoteAll(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(d Dialect, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

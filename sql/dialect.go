package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the three text conventions that differ between the
// supported engines: identifier quoting, placeholder syntax and bulk-id
// matching. One implementation per engine, selected by configuration.
type Dialect interface {
	Name() string

	// QuoteIdentifier escapes a single or dotted identifier. Identifiers that
	// already carry the dialect's quotes pass through untouched.
	QuoteIdentifier(name string) string

	// Placeholder renders the parameter marker at the given 1-based,
	// globally sequential position.
	Placeholder(position int) string

	// BulkMatch renders the clause matching a column against a list of
	// values, given the number of placeholders already emitted. It returns
	// the fragment plus the parameters it binds.
	BulkMatch(column string, values []interface{}, offset int) (string, []interface{})
}

// ByName returns the dialect for a configuration name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, "`")
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (d mysqlDialect) BulkMatch(column string, values []interface{}, offset int) (string, []interface{}) {
	return inList(d, column, values, offset)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, `"`)
}

func (postgresDialect) Placeholder(position int) string {
	return "$" + strconv.Itoa(position)
}

// Postgres matches the whole id list as a single array parameter.
func (d postgresDialect) BulkMatch(column string, values []interface{}, offset int) (string, []interface{}) {
	fragment := d.QuoteIdentifier(column) + " = ANY(" + d.Placeholder(offset+1) + ")"
	return fragment, []interface{}{values}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, `"`)
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (d sqliteDialect) BulkMatch(column string, values []interface{}, offset int) (string, []interface{}) {
	return inList(d, column, values, offset)
}

func quoteIdentifier(name, quote string) string {
	if strings.HasPrefix(name, quote) && strings.HasSuffix(name, quote) && len(name) >= 2*len(quote) {
		return name
	}
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i, part := range parts {
			parts[i] = quoteIdentifier(part, quote)
		}
		return strings.Join(parts, ".")
	}
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

func inList(d Dialect, column string, values []interface{}, offset int) (string, []interface{}) {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = d.Placeholder(offset + i + 1)
	}
	fragment := d.QuoteIdentifier(column) + " IN (" + strings.Join(placeholders, ", ") + ")"
	return fragment, values
}

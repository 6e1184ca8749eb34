package dialect

import (
	"fmt"
	"net/url"
	"strings"
)

// postgresDialect targets PostgreSQL (jackc/pgx via its database/sql adapter).
type postgresDialect struct{}

func (d *postgresDialect) Engine() Engine     { return Postgres }
func (d *postgresDialect) DriverName() string { return "pgx" }
func (d *postgresDialect) ProbeQuery() string { return "SELECT version()" }

func (d *postgresDialect) BuildDSN(host string, port int, database, user, password string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + database,
	}
	return u.String()
}

func (d *postgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *postgresDialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (d *postgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgresDialect) CreateTableDDL(schema, table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdentifier(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		d.QualifyTable(schema, table), strings.Join(defs, ", "))
}

func (d *postgresDialect) InsertSQL(schema, table string, cols []string, numRows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QualifyTable(schema, table), columnList(d, cols), multiRowValues(d, len(cols), numRows))
}

// MaxRowsPerInsert stays under the wire protocol's 65535 bind parameters.
func (d *postgresDialect) MaxRowsPerInsert(numCols int) int {
	if numCols <= 0 {
		return 1
	}
	n := 65000 / numCols
	if n < 1 {
		n = 1
	}
	return n
}

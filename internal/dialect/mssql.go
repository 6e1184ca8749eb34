package dialect

import (
	"fmt"
	"net/url"
	"strings"
)

// mssqlDialect targets Microsoft SQL Server (microsoft/go-mssqldb driver).
type mssqlDialect struct{}

func (d *mssqlDialect) Engine() Engine     { return MSSQL }
func (d *mssqlDialect) DriverName() string { return "sqlserver" }
func (d *mssqlDialect) ProbeQuery() string { return "SELECT @@VERSION" }

func (d *mssqlDialect) BuildDSN(host string, port int, database, user, password string) string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	q := url.Values{}
	q.Set("database", database)
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *mssqlDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *mssqlDialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (d *mssqlDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// CreateTableDDL guards the CREATE with an OBJECT_ID check so re-running it
// for the same table is a no-op. Columns are NVARCHAR(MAX).
func (d *mssqlDialect) CreateTableDDL(schema, table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdentifier(c) + " NVARCHAR(MAX) NULL"
	}
	qualified := d.QualifyTable(schema, table)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(qualified, "'", "''"), qualified, strings.Join(defs, ", "))
}

func (d *mssqlDialect) InsertSQL(schema, table string, cols []string, numRows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QualifyTable(schema, table), columnList(d, cols), multiRowValues(d, len(cols), numRows))
}

// MaxRowsPerInsert respects both the 2100-parameter request limit and the
// 1000-row table value constructor limit.
func (d *mssqlDialect) MaxRowsPerInsert(numCols int) int {
	if numCols <= 0 {
		return 1
	}
	n := 2000 / numCols
	if n > 1000 {
		n = 1000
	}
	if n < 1 {
		n = 1
	}
	return n
}

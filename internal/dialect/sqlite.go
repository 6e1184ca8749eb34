package dialect

import (
	"fmt"
	"strings"
)

// sqliteDialect targets SQLite database files (modernc.org/sqlite driver).
type sqliteDialect struct{}

func (d *sqliteDialect) Engine() Engine      { return SQLite }
func (d *sqliteDialect) DriverName() string  { return "sqlite" }
func (d *sqliteDialect) ProbeQuery() string  { return "select sqlite_version()" }

// BuildDSN returns the database file path; host, port, and credentials do
// not apply to an embedded file database.
func (d *sqliteDialect) BuildDSN(host string, port int, database, user, password string) string {
	return database
}

func (d *sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *sqliteDialect) QualifyTable(schema, table string) string {
	// SQLite has no schemas; the qualifier is ignored.
	return d.QuoteIdentifier(table)
}

func (d *sqliteDialect) Placeholder(index int) string { return "?" }

func (d *sqliteDialect) CreateTableDDL(schema, table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdentifier(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		d.QualifyTable(schema, table), strings.Join(defs, ", "))
}

func (d *sqliteDialect) InsertSQL(schema, table string, cols []string, numRows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QualifyTable(schema, table), columnList(d, cols), multiRowValues(d, len(cols), numRows))
}

// MaxRowsPerInsert stays within SQLITE_MAX_VARIABLE_NUMBER (32766 in the
// bundled build).
func (d *sqliteDialect) MaxRowsPerInsert(numCols int) int {
	if numCols <= 0 {
		return 1
	}
	n := 32000 / numCols
	if n < 1 {
		return 1
	}
	return n
}

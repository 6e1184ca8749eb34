// Package dialect provides per-engine SQL generation for the migration
// pipeline. Engine selection is an explicit closed set; nothing in this
// package inspects connection strings to guess the vendor.
package dialect

import (
	"fmt"
	"strings"
)

// Engine identifies a supported database engine.
type Engine string

const (
	SQLite   Engine = "sqlite"
	MSSQL    Engine = "mssql"
	Oracle   Engine = "oracle"
	Postgres Engine = "postgres"
)

// ParseEngine resolves an engine name or alias to its canonical Engine.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3", "file":
		return SQLite, nil
	case "mssql", "sqlserver", "sql-server":
		return MSSQL, nil
	case "oracle", "ora", "oracledb":
		return Oracle, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unknown engine %q", s)
	}
}

// Dialect generates engine-specific SQL for the migration pipeline.
// One implementation exists per Engine.
type Dialect interface {
	// Engine returns the engine this dialect serves.
	Engine() Engine

	// DriverName returns the database/sql driver name to open with.
	DriverName() string

	// BuildDSN builds a connection string from discrete fields.
	// For file-backed engines, database is the file path.
	BuildDSN(host string, port int, database, user, password string) string

	// QuoteIdentifier quotes a schema, table, or column name.
	QuoteIdentifier(name string) string

	// QualifyTable returns the qualified, quoted table reference.
	// An empty schema yields the bare quoted table name.
	QualifyTable(schema, table string) string

	// Placeholder returns the parameter placeholder for a 1-based index.
	Placeholder(index int) string

	// CreateTableDDL returns an idempotent CREATE TABLE statement that
	// defines every column as the engine's widest text type. Running it
	// against an existing table must be a no-op.
	CreateTableDDL(schema, table string, cols []string) string

	// InsertSQL returns an INSERT statement covering numRows rows of the
	// given columns, with positional placeholders bound row-major.
	InsertSQL(schema, table string, cols []string, numRows int) string

	// MaxRowsPerInsert returns how many rows of numCols columns a single
	// generated INSERT may carry without exceeding the engine's bind
	// parameter limits.
	MaxRowsPerInsert(numCols int) int

	// ProbeQuery returns a cheap statement used to verify connectivity.
	ProbeQuery() string
}

// For returns the dialect for an engine.
func For(e Engine) (Dialect, error) {
	switch e {
	case SQLite:
		return &sqliteDialect{}, nil
	case MSSQL:
		return &mssqlDialect{}, nil
	case Oracle:
		return &oracleDialect{}, nil
	case Postgres:
		return &postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("no dialect for engine %q", e)
	}
}

// SelectAll builds the full-scan query the extractor streams from.
func SelectAll(d Dialect, schema, table string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), d.QualifyTable(schema, table))
}

// columnList quotes and joins column names.
func columnList(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// valuesTuple renders one parenthesized placeholder group for a row,
// numbering placeholders from start.
func valuesTuple(d Dialect, numCols, start int) string {
	ph := make([]string, numCols)
	for i := range ph {
		ph[i] = d.Placeholder(start + i)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

// multiRowValues renders the VALUES list for numRows rows of numCols columns.
func multiRowValues(d Dialect, numCols, numRows int) string {
	tuples := make([]string, numRows)
	for r := 0; r < numRows; r++ {
		tuples[r] = valuesTuple(d, numCols, r*numCols+1)
	}
	return strings.Join(tuples, ", ")
}

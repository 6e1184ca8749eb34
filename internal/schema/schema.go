// Package schema introspects source tables and resolves the column list a
// migration operates on.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbporter/dbporter/internal/dialect"
)

// Column is one column of a source table.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"` // vendor-specific label, not normalized
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Selected   bool   `json:"selected"` // caller may exclude columns per migration
}

// Table is a source table's metadata. RowCount is an estimate and may be
// RowCountUnknown.
type Table struct {
	Name     string   `json:"name"`
	Schema   string   `json:"schema,omitempty"`
	RowCount int64    `json:"row_count"`
	Columns  []Column `json:"columns"`
}

// RowCountUnknown marks a table whose row count could not be estimated.
const RowCountUnknown int64 = -1

// FullName returns schema.table, or just table when unqualified.
func (t *Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnNames returns the names of all selected columns in order.
func (t *Table) ColumnNames() []string {
	var names []string
	for _, c := range t.Columns {
		if c.Selected {
			names = append(names, c.Name)
		}
	}
	return names
}

// LookupError reports a failed metadata lookup. It is propagated, never
// retried.
type LookupError struct {
	Table string
	Err   error
}

func (e *LookupError) Error() string {
	if e.Table == "" {
		return "schema lookup: " + e.Err.Error()
	}
	return fmt.Sprintf("schema lookup for %s: %v", e.Table, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ColumnNames resolves the ordered column list for a migration. A non-empty
// override is returned unchanged with no metadata query; otherwise the
// table's current columns are read from the database.
func ColumnNames(ctx context.Context, db *sql.DB, engine dialect.Engine, table, schemaName string, override []string) ([]string, error) {
	if len(override) > 0 {
		return override, nil
	}

	cols, err := TableColumns(ctx, db, engine, table, schemaName)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// TableColumns reads the ordered column metadata for one table.
func TableColumns(ctx context.Context, db *sql.DB, engine dialect.Engine, table, schemaName string) ([]Column, error) {
	var (
		cols []Column
		err  error
	)
	switch engine {
	case dialect.SQLite:
		cols, err = sqliteColumns(ctx, db, table)
	case dialect.MSSQL:
		cols, err = mssqlColumns(ctx, db, table, schemaName)
	case dialect.Oracle:
		cols, err = oracleColumns(ctx, db, table, schemaName)
	case dialect.Postgres:
		cols, err = postgresColumns(ctx, db, table, schemaName)
	default:
		err = fmt.Errorf("unknown engine %q", engine)
	}
	if err != nil {
		return nil, &LookupError{Table: table, Err: err}
	}
	if len(cols) == 0 {
		return nil, &LookupError{Table: table, Err: fmt.Errorf("table not found or has no columns")}
	}
	return cols, nil
}

// ListTables lists tables visible to the connection, with columns and
// approximate row counts. schemaName narrows the listing where the engine
// has schemas.
func ListTables(ctx context.Context, db *sql.DB, engine dialect.Engine, schemaName string) ([]Table, error) {
	var (
		tables []Table
		err    error
	)
	switch engine {
	case dialect.SQLite:
		tables, err = sqliteTables(ctx, db)
	case dialect.MSSQL:
		tables, err = mssqlTables(ctx, db, schemaName)
	case dialect.Oracle:
		tables, err = oracleTables(ctx, db, schemaName)
	case dialect.Postgres:
		tables, err = postgresTables(ctx, db, schemaName)
	default:
		err = fmt.Errorf("unknown engine %q", engine)
	}
	if err != nil {
		return nil, &LookupError{Err: err}
	}
	return tables, nil
}

// EstimateRowCount returns an approximate row count for a table, or
// RowCountUnknown when the engine cannot provide one cheaply. Estimation
// failures degrade to RowCountUnknown rather than failing the migration.
func EstimateRowCount(ctx context.Context, db *sql.DB, engine dialect.Engine, table, schemaName string) int64 {
	var (
		n   sql.NullInt64
		err error
	)
	switch engine {
	case dialect.SQLite:
		d, _ := dialect.For(dialect.SQLite)
		err = db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QualifyTable("", table))).Scan(&n)
	case dialect.MSSQL:
		err = db.QueryRowContext(ctx, `
			SELECT SUM(p.rows)
			FROM sys.partitions p
			WHERE p.index_id IN (0, 1)
			  AND p.object_id = OBJECT_ID(@p1)`,
			qualifiedName(schemaName, table)).Scan(&n)
	case dialect.Oracle:
		err = db.QueryRowContext(ctx, `
			SELECT num_rows FROM all_tables
			WHERE table_name = UPPER(:1)
			  AND (:2 IS NULL OR owner = UPPER(:2))`,
			table, nullable(schemaName)).Scan(&n)
	case dialect.Postgres:
		err = db.QueryRowContext(ctx,
			`SELECT reltuples::bigint FROM pg_class WHERE oid = to_regclass($1)`,
			qualifiedName(schemaName, table)).Scan(&n)
	default:
		return RowCountUnknown
	}
	if err != nil || !n.Valid || n.Int64 < 0 {
		return RowCountUnknown
	}
	return n.Int64
}

func qualifiedName(schemaName, table string) string {
	if schemaName == "" {
		return table
	}
	return schemaName + "." + table
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// systemOwners are Oracle-maintained schemas excluded from table listings.
const systemOwners = `'SYS', 'SYSTEM', 'OUTLN', 'DBSNMP', 'APPQOSSYS', 'WMSYS',
	'EXFSYS', 'CTXSYS', 'XDB', 'ANONYMOUS', 'ORDSYS', 'ORDDATA', 'ORDPLUGINS',
	'MDSYS', 'OLAPSYS', 'MDDATA', 'SYSMAN', 'XS$NULL', 'GSMADMIN_INTERNAL'`

func oracleColumns(ctx context.Context, db *sql.DB, table, schemaName string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			atc.column_name,
			atc.data_type,
			atc.nullable,
			CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
		FROM all_tab_columns atc
		LEFT JOIN (
			SELECT acc.column_name
			FROM all_constraints ac
			JOIN all_cons_columns acc
				ON ac.owner = acc.owner
				AND ac.constraint_name = acc.constraint_name
			WHERE ac.constraint_type = 'P'
			  AND ac.table_name = UPPER(:1)
			  AND (:2 IS NULL OR ac.owner = UPPER(:2))
		) pk ON atc.column_name = pk.column_name
		WHERE atc.table_name = UPPER(:3)
		  AND (:4 IS NULL OR atc.owner = UPPER(:4))
		ORDER BY atc.column_id`,
		table, nullable(schemaName), table, nullable(schemaName))
	if err != nil {
		return nil, fmt.Errorf("querying all_tab_columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c    Column
			nul  string
			isPK int
		)
		if err := rows.Scan(&c.Name, &c.DataType, &nul, &isPK); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c.Nullable = nul == "Y"
		c.PrimaryKey = isPK == 1
		c.Selected = true
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func oracleTables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT owner, table_name, num_rows
		FROM all_tables
		WHERE owner NOT IN (%s)
		  AND (:1 IS NULL OR owner = UPPER(:1))
		ORDER BY owner, table_name`, systemOwners),
		nullable(schemaName))
	if err != nil {
		return nil, fmt.Errorf("querying all_tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var (
			t        Table
			rowCount sql.NullInt64
		)
		if err := rows.Scan(&t.Schema, &t.Name, &rowCount); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		t.RowCount = RowCountUnknown
		if rowCount.Valid {
			t.RowCount = rowCount.Int64
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		cols, err := oracleColumns(ctx, db, tables[i].Name, tables[i].Schema)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

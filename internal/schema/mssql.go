package schema

import (
	"context"
	"database/sql"
	"fmt"
)

func mssqlColumns(ctx context.Context, db *sql.DB, table, schemaName string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.name,
			t.name AS data_type,
			c.is_nullable,
			CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
		FROM sys.columns c
		INNER JOIN sys.types t ON c.user_type_id = t.user_type_id
		LEFT JOIN (
			SELECT ic.column_id, ic.object_id
			FROM sys.index_columns ic
			INNER JOIN sys.indexes i
				ON ic.object_id = i.object_id AND ic.index_id = i.index_id
			WHERE i.is_primary_key = 1
		) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
		WHERE c.object_id = OBJECT_ID(@p1)
		ORDER BY c.column_id`,
		qualifiedName(schemaName, table))
	if err != nil {
		return nil, fmt.Errorf("querying sys.columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c        Column
			nullable bool
			isPK     int
		)
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &isPK); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c.Nullable = nullable
		c.PrimaryKey = isPK == 1
		c.Selected = true
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func mssqlTables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.name AS schema_name, t.name AS table_name, SUM(p.rows) AS row_count
		FROM sys.tables t
		INNER JOIN sys.schemas s ON t.schema_id = s.schema_id
		INNER JOIN sys.partitions p
			ON t.object_id = p.object_id AND p.index_id IN (0, 1)
		WHERE @p1 = '' OR s.name = @p1
		GROUP BY s.name, t.name
		ORDER BY s.name, t.name`,
		schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying sys.tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		cols, err := mssqlColumns(ctx, db, tables[i].Name, tables[i].Schema)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

package schema

import (
	"context"
	"database/sql"
	"fmt"
)

func postgresColumns(ctx context.Context, db *sql.DB, table, schemaName string) ([]Column, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND tc.table_schema = c.table_schema
				  AND tc.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			) AS is_primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`,
		schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("querying information_schema.columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		c.Selected = true
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func postgresTables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT n.nspname, c.relname, GREATEST(c.reltuples::bigint, -1)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p') AND n.nspname = $1
		ORDER BY c.relname`,
		schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying pg_class: %w", err)
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
		cols, err := postgresColumns(ctx, db, tables[i].Name, tables[i].Schema)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

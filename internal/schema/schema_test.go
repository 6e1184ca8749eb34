package schema

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dbporter/dbporter/internal/dialect"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "source.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestTableColumnsSQLite(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT
	)`)

	cols, err := TableColumns(context.Background(), db, dialect.SQLite, "users", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}

	want := []Column{
		{Name: "id", DataType: "INTEGER", Nullable: true, PrimaryKey: true, Selected: true},
		{Name: "name", DataType: "TEXT", Nullable: false, PrimaryKey: false, Selected: true},
		{Name: "email", DataType: "TEXT", Nullable: true, PrimaryKey: false, Selected: true},
	}
	for i, w := range want {
		if cols[i] != w {
			t.Errorf("column %d = %+v, want %+v", i, cols[i], w)
		}
	}
}

func TestTableColumnsMissingTable(t *testing.T) {
	db := newTestDB(t)

	_, err := TableColumns(context.Background(), db, dialect.SQLite, "nope", "")
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) {
		t.Errorf("error is %T, want *LookupError", err)
	}
	if lookupErr.Table != "nope" {
		t.Errorf("lookup error table = %q, want \"nope\"", lookupErr.Table)
	}
}

func TestColumnNamesOverrideSkipsMetadata(t *testing.T) {
	// A closed handle proves the override path never touches the database.
	db := newTestDB(t)
	db.Close()

	override := []string{"a", "c"}
	got, err := ColumnNames(context.Background(), db, dialect.SQLite, "whatever", "", override)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("override not returned unchanged: %v", got)
	}
}

func TestColumnNamesFromMetadata(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, `CREATE TABLE t (x TEXT, y TEXT, z TEXT)`)

	got, err := ColumnNames(context.Background(), db, dialect.SQLite, "t", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"x", "y", "z"}
	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListTablesSQLite(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, `CREATE TABLE alpha (a TEXT)`)
	mustExec(t, db, `CREATE TABLE beta (b TEXT)`)
	mustExec(t, db, `INSERT INTO beta VALUES ('1'), ('2')`)

	tables, err := ListTables(context.Background(), db, dialect.SQLite, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}
	if tables[0].Name != "alpha" || tables[1].Name != "beta" {
		t.Errorf("tables not sorted by name: %s, %s", tables[0].Name, tables[1].Name)
	}
	if tables[0].RowCount != 0 {
		t.Errorf("alpha row count = %d, want 0", tables[0].RowCount)
	}
	if tables[1].RowCount != 2 {
		t.Errorf("beta row count = %d, want 2", tables[1].RowCount)
	}
	if len(tables[1].Columns) != 1 || tables[1].Columns[0].Name != "b" {
		t.Errorf("beta columns = %+v", tables[1].Columns)
	}
}

func TestEstimateRowCountSQLite(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, `CREATE TABLE t (a TEXT)`)
	mustExec(t, db, `INSERT INTO t VALUES ('1'), ('2'), ('3')`)

	if n := EstimateRowCount(context.Background(), db, dialect.SQLite, "t", ""); n != 3 {
		t.Errorf("EstimateRowCount = %d, want 3", n)
	}
	if n := EstimateRowCount(context.Background(), db, dialect.SQLite, "missing", ""); n != RowCountUnknown {
		t.Errorf("EstimateRowCount for missing table = %d, want RowCountUnknown", n)
	}
}

func TestTableFullName(t *testing.T) {
	qualified := Table{Name: "users", Schema: "dbo"}
	if got := qualified.FullName(); got != "dbo.users" {
		t.Errorf("FullName = %q", got)
	}
	bare := Table{Name: "users"}
	if got := bare.FullName(); got != "users" {
		t.Errorf("FullName = %q", got)
	}
}

func TestColumnNamesSelection(t *testing.T) {
	tbl := Table{
		Name: "t",
		Columns: []Column{
			{Name: "a", Selected: true},
			{Name: "b", Selected: false},
			{Name: "c", Selected: true},
		},
	}
	got := tbl.ColumnNames()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("selected column names = %v, want [a c]", got)
	}
}

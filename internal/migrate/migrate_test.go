package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dbporter/dbporter/internal/dbconn"
	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/extract"
)

func newSQLiteConfig(t *testing.T, name string) *dbconn.Config {
	t.Helper()
	return &dbconn.Config{
		Engine: dialect.SQLite,
		Path:   filepath.Join(t.TempDir(), name),
	}
}

func seedSource(t *testing.T, cfg *dbconn.Config, numRows int) {
	t.Helper()
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE people (id INTEGER, name TEXT, city TEXT)`); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < numRows; i++ {
		_, err := db.Exec(`INSERT INTO people VALUES (?, ?, ?)`,
			i, fmt.Sprintf("person-%d", i), fmt.Sprintf("city-%d", i%7))
		if err != nil {
			t.Fatal(err)
		}
	}
}

func openTarget(t *testing.T, cfg *dbconn.Config) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunEndToEnd(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 2500)

	var started bool
	var chunkRows []int64
	res, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "people",
		ChunkSize:   1000,
		BatchSize:   100,
		StagingRoot: t.TempDir(),
		OnStart:     func(totalRows int64) { started = true },
		OnChunk:     func(c extract.Chunk, n int64) { chunkRows = append(chunkRows, n) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunksProcessed != 3 {
		t.Errorf("ChunksProcessed = %d, want 3 (ceil(2500/1000))", res.ChunksProcessed)
	}
	if res.RowsProcessed != 2500 {
		t.Errorf("RowsProcessed = %d, want 2500", res.RowsProcessed)
	}
	if !started {
		t.Error("OnStart was never called")
	}
	if len(chunkRows) != 3 || chunkRows[0] != 1000 || chunkRows[1] != 1000 || chunkRows[2] != 500 {
		t.Errorf("per-chunk imported rows = %v, want [1000 1000 500]", chunkRows)
	}

	db := openTarget(t, target)
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "people"`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2500 {
		t.Errorf("target row count = %d, want 2500", n)
	}

	// Values survive intact; everything on the target is text.
	var name string
	if err := db.QueryRow(`SELECT name FROM "people" WHERE id = '1234'`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "person-1234" {
		t.Errorf("name = %q, want person-1234", name)
	}
}

func TestRunCleansUpStaging(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 50)

	root := t.TempDir()
	_, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "people",
		ChunkSize:   20,
		BatchSize:   10,
		StagingRoot: root,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "people")); !os.IsNotExist(err) {
		t.Error("staging directory survived a successful run")
	}
}

func TestRunZeroRowTable(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 0)

	res, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "people",
		ChunkSize:   100,
		StagingRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunksProcessed != 0 || res.RowsProcessed != 0 {
		t.Errorf("empty source produced result %+v", res)
	}

	// No chunks means the destination table is never created.
	db := openTarget(t, target)
	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'people'`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("destination table was created for a zero-row source")
	}
}

func TestRunColumnSubset(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 10)

	_, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "people",
		Columns:     []string{"id", "city"},
		ChunkSize:   100,
		StagingRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	db := openTarget(t, target)
	rows, err := db.Query(`SELECT * FROM "people" LIMIT 1`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0] != "id" || cols[1] != "city" {
		t.Errorf("target columns = %v, want [id city]", cols)
	}
}

func TestRunPartialFailureKeepsPrefix(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 30)

	// Pre-create the destination with a constraint the second chunk trips.
	setup, err := sql.Open("sqlite", target.Path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = setup.Exec(`CREATE TABLE "people" ("id" TEXT CHECK ("id" <> '15'), "name" TEXT, "city" TEXT)`)
	setup.Close()
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "people",
		ChunkSize:   10,
		BatchSize:   5,
		StagingRoot: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected the run to fail on the constrained row")
	}
	if res.ChunksProcessed != 1 {
		t.Errorf("ChunksProcessed = %d, want 1 full chunk before the failure", res.ChunksProcessed)
	}

	// Chunk 0 (ids 0-9) and the first batch of chunk 1 (ids 10-14) committed.
	db := openTarget(t, target)
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "people"`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 15 {
		t.Errorf("target row count after failure = %d, want committed prefix of 15", n)
	}
}

func TestRunMissingTable(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")
	seedSource(t, source, 0)

	_, err := Run(context.Background(), Job{
		Source:      source,
		Target:      target,
		Table:       "nope",
		StagingRoot: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected column resolution to fail for a missing table")
	}
}

func TestRunRequiresTable(t *testing.T) {
	source := newSQLiteConfig(t, "source.db")
	target := newSQLiteConfig(t, "target.db")

	if _, err := Run(context.Background(), Job{Source: source, Target: target}); err == nil {
		t.Fatal("expected an error for a job without a table")
	}
}

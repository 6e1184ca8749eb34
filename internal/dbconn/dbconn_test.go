package dbconn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dbporter/dbporter/internal/dialect"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &Config{
		Engine: dialect.SQLite,
		Path:   filepath.Join(t.TempDir(), "probe.db"),
	}
	db, err := cfg.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatal(err)
	}
	if one != 1 {
		t.Errorf("probe returned %d", one)
	}
}

func TestTestProbe(t *testing.T) {
	cfg := &Config{
		Engine: dialect.SQLite,
		Path:   filepath.Join(t.TempDir(), "probe.db"),
	}
	if err := Test(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
}

func TestOpenUnknownEngine(t *testing.T) {
	cfg := &Config{Engine: "mongodb"}
	if _, err := cfg.Open(context.Background()); err == nil {
		t.Fatal("expected an error for an unknown engine")
	}
}

func TestConnString(t *testing.T) {
	cfg := &Config{Engine: dialect.Postgres, DSN: "postgres://u:p@h:5432/d"}
	got, err := cfg.ConnString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "postgres://u:p@h:5432/d" {
		t.Errorf("DSN override ignored: %q", got)
	}

	cfg = &Config{Engine: dialect.SQLite, Path: "/data/app.db", Database: "ignored"}
	got, err = cfg.ConnString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/data/app.db" {
		t.Errorf("sqlite conn string = %q, want the file path", got)
	}
}

func TestAddressOmitsCredentials(t *testing.T) {
	cfg := &Config{
		Engine:   dialect.MSSQL,
		Host:     "db1",
		Port:     1433,
		Database: "sales",
		User:     "sa",
		Password: "hunter2",
	}
	addr := cfg.Address()
	if addr != "db1:1433/sales" {
		t.Errorf("Address = %q", addr)
	}

	cfg = &Config{Engine: dialect.SQLite, Path: "/data/app.db"}
	if cfg.Address() != "/data/app.db" {
		t.Errorf("sqlite Address = %q", cfg.Address())
	}
}

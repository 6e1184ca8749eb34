// Package dbconn holds the connection descriptor for a migration endpoint
// and opens database/sql handles from it. Descriptors are immutable caller
// state; the pipeline never stores or mutates them.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Drivers registered for their side effects; dialects name them.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"

	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/logging"
)

// Config describes one database endpoint. Either DSN is set, or the
// discrete fields are; Path doubles as the database for file engines.
type Config struct {
	Engine   dialect.Engine `yaml:"engine"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	Database string         `yaml:"database"`
	User     string         `yaml:"user"`
	Password string         `yaml:"password"`
	Schema   string         `yaml:"schema"`
	Path     string         `yaml:"path"` // sqlite database file
	DSN      string         `yaml:"dsn"`  // overrides everything above except Engine
}

// Dialect returns the dialect for the configured engine.
func (c *Config) Dialect() (dialect.Dialect, error) {
	return dialect.For(c.Engine)
}

// ConnString builds the driver connection string for this endpoint.
func (c *Config) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	d, err := c.Dialect()
	if err != nil {
		return "", err
	}
	database := c.Database
	if c.Engine == dialect.SQLite && c.Path != "" {
		database = c.Path
	}
	return d.BuildDSN(c.Host, c.Port, database, c.User, c.Password), nil
}

// Open opens and pings a database handle for this endpoint. The caller owns
// the handle and must close it on every exit path.
func (c *Config) Open(ctx context.Context) (*sql.DB, error) {
	d, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	dsn, err := c.ConnString()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", c.Engine, err)
	}

	// One migration job owns one connection; no pooling across chunks.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s at %s: %w", c.Engine, c.Address(), err)
	}

	logging.Debug("connected to %s endpoint %s", c.Engine, c.Address())
	return db, nil
}

// Address returns a loggable endpoint identity without credentials.
func (c *Config) Address() string {
	if c.Engine == dialect.SQLite {
		if c.Path != "" {
			return c.Path
		}
		return c.Database
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// Test verifies connectivity by running the engine's probe query.
func Test(ctx context.Context, c *Config) error {
	d, err := c.Dialect()
	if err != nil {
		return err
	}
	db, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	row := db.QueryRowContext(ctx, d.ProbeQuery())
	var probe string
	if err := row.Scan(&probe); err != nil {
		return fmt.Errorf("probe query failed: %w", err)
	}
	logging.Debug("probe ok: %.60s", probe)
	return nil
}

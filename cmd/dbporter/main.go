package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dbporter/dbporter/internal/config"
	"github.com/dbporter/dbporter/internal/dbconn"
	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/extract"
	"github.com/dbporter/dbporter/internal/logging"
	"github.com/dbporter/dbporter/internal/migrate"
	"github.com/dbporter/dbporter/internal/profile"
	"github.com/dbporter/dbporter/internal/progress"
	"github.com/dbporter/dbporter/internal/schema"
	"github.com/dbporter/dbporter/internal/version"
)

func main() {
	// Credentials referenced as ${VAR} in config may live in a .env file.
	godotenv.Load()

	app := &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Migrate one table from source to target",
				Action: runMigration,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "table", Usage: "Source table to migrate", Required: true},
					&cli.StringFlag{Name: "schema", Usage: "Source schema qualifier"},
					&cli.StringSliceFlag{Name: "columns", Usage: "Subset of columns to migrate, in order"},
					&cli.IntFlag{Name: "chunk-size", Usage: "Rows per staged chunk"},
					&cli.IntFlag{Name: "batch-size", Usage: "Rows per insert transaction"},
					&cli.StringFlag{Name: "staging-dir", Usage: "Staging root (default: temp dir)"},
					&cli.StringFlag{Name: "source-profile", Usage: "Use a saved profile as the source"},
					&cli.StringFlag{Name: "target-profile", Usage: "Use a saved profile as the target"},
					&cli.BoolFlag{Name: "no-progress", Usage: "Disable the progress bar"},
				},
			},
			{
				Name:   "tables",
				Usage:  "List tables visible at an endpoint",
				Action: listTables,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "endpoint", Value: "source", Usage: "Which endpoint: source or target"},
					&cli.StringFlag{Name: "schema", Usage: "Schema to list"},
				},
			},
			{
				Name:   "test",
				Usage:  "Verify connectivity to the configured endpoints",
				Action: testConnections,
			},
			{
				Name:  "profile",
				Usage: "Manage saved connection profiles",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "store", Value: defaultProfilePath(), Usage: "Profile database path"},
				},
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List saved profiles",
						Action: listProfiles,
					},
					{
						Name:   "add",
						Usage:  "Save a connection profile",
						Action: addProfile,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "engine", Required: true, Usage: "sqlite, mssql, oracle, or postgres"},
							&cli.StringFlag{Name: "host"},
							&cli.IntFlag{Name: "port"},
							&cli.StringFlag{Name: "database"},
							&cli.StringFlag{Name: "user"},
							&cli.StringFlag{Name: "password"},
							&cli.StringFlag{Name: "schema"},
							&cli.StringFlag{Name: "path", Usage: "Database file (sqlite)"},
						},
					},
					{
						Name:   "rm",
						Usage:  "Delete a saved profile",
						Action: deleteProfile,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)
	logging.SetFormat(cfg.Log.Format)
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted.")
		cancel()
	}()
	return ctx, cancel
}

func runMigration(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if name := c.String("source-profile"); name != "" {
		conn, err := profileConn(c, name)
		if err != nil {
			return err
		}
		cfg.Source = *conn
	}
	if name := c.String("target-profile"); name != "" {
		conn, err := profileConn(c, name)
		if err != nil {
			return err
		}
		cfg.Target = *conn
	}

	job := migrate.Job{
		Source:      &cfg.Source,
		Target:      &cfg.Target,
		Table:       c.String("table"),
		Schema:      c.String("schema"),
		ChunkSize:   cfg.Migration.ChunkSize,
		BatchSize:   cfg.Migration.BatchSize,
		Columns:     c.StringSlice("columns"),
		StagingRoot: cfg.Migration.StagingRoot,
	}
	if c.IsSet("chunk-size") {
		job.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("batch-size") {
		job.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("staging-dir") {
		job.StagingRoot = c.String("staging-dir")
	}

	var tracker *progress.Tracker
	if !c.Bool("no-progress") {
		job.OnStart = func(totalRows int64) {
			tracker = progress.New(totalRows)
		}
		job.OnChunk = func(chunk extract.Chunk, rows int64) {
			if tracker != nil {
				tracker.Add(rows)
			}
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := migrate.Run(ctx, job)
	if tracker != nil {
		tracker.Finish()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Done: %d chunks, %d rows\n", res.ChunksProcessed, res.RowsProcessed)
	return nil
}

func listTables(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	conn := &cfg.Source
	if c.String("endpoint") == "target" {
		conn = &cfg.Target
	}
	schemaName := conn.Schema
	if c.IsSet("schema") {
		schemaName = c.String("schema")
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := conn.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := schema.ListTables(ctx, db, conn.Engine, schemaName)
	if err != nil {
		return err
	}
	for _, t := range tables {
		rowCount := "?"
		if t.RowCount != schema.RowCountUnknown {
			rowCount = fmt.Sprintf("%d", t.RowCount)
		}
		fmt.Printf("%-40s %10s rows  %d columns\n", t.FullName(), rowCount, len(t.Columns))
	}
	return nil
}

func testConnections(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for name, conn := range map[string]*dbconn.Config{"source": &cfg.Source, "target": &cfg.Target} {
		if err := dbconn.Test(ctx, conn); err != nil {
			return fmt.Errorf("%s (%s): %w", name, conn.Address(), err)
		}
		fmt.Printf("%s ok: %s %s\n", name, conn.Engine, conn.Address())
	}
	return nil
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "profiles.db"
	}
	return filepath.Join(home, ".dbporter", "profiles.db")
}

func openProfileStore(c *cli.Context) (*profile.Store, error) {
	path := c.String("store")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return profile.Open(path)
}

func profileConn(c *cli.Context, name string) (*dbconn.Config, error) {
	store, err := profile.Open(defaultProfilePath())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	p, err := store.Get(name)
	if err != nil {
		return nil, err
	}
	return p.ConnConfig(), nil
}

func listProfiles(c *cli.Context) error {
	store, err := openProfileStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	profiles, err := store.List()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Printf("%-20s %-10s %s\n", p.Name, p.Engine, p.ConnConfig().Address())
	}
	return nil
}

func addProfile(c *cli.Context) error {
	engine, err := dialect.ParseEngine(c.String("engine"))
	if err != nil {
		return err
	}

	store, err := openProfileStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	p := &profile.Profile{
		Name:     c.String("name"),
		Engine:   engine,
		Host:     c.String("host"),
		Port:     c.Int("port"),
		Database: c.String("database"),
		User:     c.String("user"),
		Password: c.String("password"),
		Schema:   c.String("schema"),
		Path:     c.String("path"),
	}
	if err := store.Save(p); err != nil {
		return err
	}
	fmt.Printf("Saved profile %q (%s)\n", p.Name, p.ID)
	return nil
}

func deleteProfile(c *cli.Context) error {
	store, err := openProfileStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	name := c.String("name")
	if err := store.Delete(name); err != nil {
		return err
	}
	fmt.Printf("Deleted profile %q\n", name)
	return nil
}

// Package config loads the tool's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dbporter/dbporter/internal/dbconn"
	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/migrate"
)

// Config is the full tool configuration.
type Config struct {
	Source dbconn.Config `yaml:"source"`
	Target dbconn.Config `yaml:"target"`

	Migration struct {
		ChunkSize   int    `yaml:"chunk_size"`
		BatchSize   int    `yaml:"batch_size"`
		StagingRoot string `yaml:"staging_root"`
	} `yaml:"migration"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and validates a config file. Environment references like
// ${DB_PASSWORD} in credential fields are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for _, conn := range []*dbconn.Config{&c.Source, &c.Target} {
		conn.User = os.ExpandEnv(conn.User)
		conn.Password = os.ExpandEnv(conn.Password)
		if conn.Port == 0 {
			conn.Port = defaultPort(conn.Engine)
		}
		if conn.Schema == "" {
			conn.Schema = defaultSchema(conn.Engine)
		}
	}
	if c.Migration.ChunkSize == 0 {
		c.Migration.ChunkSize = migrate.DefaultChunkSize
	}
	if c.Migration.BatchSize == 0 {
		c.Migration.BatchSize = migrate.DefaultBatchSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	for name, conn := range map[string]*dbconn.Config{"source": &c.Source, "target": &c.Target} {
		if conn.Engine == "" {
			return fmt.Errorf("%s: engine is required", name)
		}
		if _, err := dialect.For(conn.Engine); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if conn.Engine == dialect.SQLite {
			if conn.Path == "" && conn.Database == "" && conn.DSN == "" {
				return fmt.Errorf("%s: sqlite requires a path", name)
			}
		} else if conn.DSN == "" && conn.Host == "" {
			return fmt.Errorf("%s: host is required", name)
		}
	}
	if c.Migration.ChunkSize < 1 {
		return fmt.Errorf("migration.chunk_size must be positive")
	}
	if c.Migration.BatchSize < 1 {
		return fmt.Errorf("migration.batch_size must be positive")
	}
	return nil
}

func defaultPort(e dialect.Engine) int {
	switch e {
	case dialect.MSSQL:
		return 1433
	case dialect.Oracle:
		return 1521
	case dialect.Postgres:
		return 5432
	default:
		return 0
	}
}

func defaultSchema(e dialect.Engine) string {
	switch e {
	case dialect.MSSQL:
		return "dbo"
	case dialect.Postgres:
		return "public"
	default:
		// Oracle defaults to the connecting user; SQLite has none.
		return ""
	}
}

// Package profile stores named connection profiles in a local SQLite
// database so endpoints can be referenced by name instead of retyping
// credentials.
package profile

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dbporter/dbporter/internal/dbconn"
	"github.com/dbporter/dbporter/internal/dialect"
)

// Profile is one saved connection endpoint.
type Profile struct {
	ID        string
	Name      string
	Engine    dialect.Engine
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	Schema    string
	Path      string
	CreatedAt time.Time
}

// ConnConfig converts the profile to a connection descriptor.
func (p *Profile) ConnConfig() *dbconn.Config {
	return &dbconn.Config{
		Engine:   p.Engine,
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		User:     p.User,
		Password: p.Password,
		Schema:   p.Schema,
		Path:     p.Path,
	}
}

// Store persists profiles in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the profile database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			engine TEXT NOT NULL,
			host TEXT,
			port INTEGER,
			database TEXT,
			user TEXT,
			password TEXT,
			schema TEXT,
			path TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing profile store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts a profile, assigning an ID if it has none.
func (s *Store) Save(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO profiles (id, name, engine, host, port, database, user, password, schema, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Engine), p.Host, p.Port, p.Database, p.User, p.Password, p.Schema, p.Path)
	if err != nil {
		return fmt.Errorf("saving profile %q: %w", p.Name, err)
	}
	return nil
}

// Get returns a profile by name, credentials included.
func (s *Store) Get(name string) (*Profile, error) {
	row := s.db.QueryRow(`
		SELECT id, name, engine, host, port, database, user, password, schema, path, created_at
		FROM profiles WHERE name = ?`, name)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no profile named %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %q: %w", name, err)
	}
	return p, nil
}

// List returns all profiles ordered by name, with passwords masked.
func (s *Store) List() ([]Profile, error) {
	rows, err := s.db.Query(`
		SELECT id, name, engine, host, port, database, user, password, schema, path, created_at
		FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		if p.Password != "" {
			p.Password = "****"
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes a profile by name.
func (s *Store) Delete(name string) error {
	result, err := s.db.Exec(`DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no profile named %q", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (*Profile, error) {
	var (
		p       Profile
		engine  string
		created string
	)
	err := r.Scan(&p.ID, &p.Name, &engine, &p.Host, &p.Port, &p.Database,
		&p.User, &p.Password, &p.Schema, &p.Path, &created)
	if err != nil {
		return nil, err
	}
	p.Engine = dialect.Engine(engine)
	// SQLite stores CURRENT_TIMESTAMP as UTC text.
	if ts, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		p.CreatedAt = ts.UTC()
	}
	return &p, nil
}

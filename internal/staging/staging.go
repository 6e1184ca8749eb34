// Package staging manages the on-disk chunk artifacts between extraction
// and import. Each migrated table gets its own directory under the store
// root; each chunk is one CSV file with a header row.
package staging

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dbporter/dbporter/internal/logging"
)

// Store owns one staging root directory. The root is passed in explicitly
// and scoped to a run; there is no process-wide staging state.
type Store struct {
	root string
}

// NewStore creates a store rooted at root, creating the directory if
// absent. An empty root uses a fresh temporary directory.
func NewStore(root string) (*Store, error) {
	if root == "" {
		dir, err := os.MkdirTemp("", "dbporter-staging-")
		if err != nil {
			return nil, fmt.Errorf("creating staging root: %w", err)
		}
		return &Store{root: dir}, nil
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the staging root directory.
func (s *Store) Root() string { return s.root }

// TableDir returns the staging directory for a table, creating it if
// absent. Safe to call repeatedly.
func (s *Store) TableDir(table string) (string, error) {
	dir := filepath.Join(s.root, table)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging dir %s: %w", dir, err)
	}
	return dir, nil
}

// ChunkPath returns the deterministic artifact path for a chunk index.
func ChunkPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%d.csv", index))
}

// WriteChunk serializes rows (already coerced to text, in column order) to
// the artifact for index, overwriting any previous artifact there. The
// first record is the column header.
func (s *Store) WriteChunk(dir string, index int, cols []string, rows [][]string) (string, error) {
	path := ChunkPath(dir, index)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating chunk artifact %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		f.Close()
		return "", fmt.Errorf("writing chunk header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return "", fmt.Errorf("writing chunk rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing chunk artifact %s: %w", path, err)
	}

	logging.Debug("staged chunk %d (%d rows) at %s", index, len(rows), path)
	return path, nil
}

// ChunkReader is a lazy, forward-only reader over one chunk artifact.
// Abandoning it part-way (after Close) leaves the artifact intact for a
// later full read.
type ChunkReader struct {
	f    *os.File
	r    *csv.Reader
	cols []string
}

// OpenChunk opens an artifact and consumes its header row.
func (s *Store) OpenChunk(path string) (*ChunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk artifact %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.ReuseRecord = false

	cols, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading chunk header from %s: %w", path, err)
	}
	return &ChunkReader{f: f, r: r, cols: cols}, nil
}

// Columns returns the header recorded when the artifact was written.
func (c *ChunkReader) Columns() []string { return c.cols }

// Next returns the next row, or io.EOF when the artifact is exhausted.
func (c *ChunkReader) Next() ([]string, error) {
	rec, err := c.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk row: %w", err)
	}
	return rec, nil
}

// Close releases the underlying file.
func (c *ChunkReader) Close() error { return c.f.Close() }

// RemoveChunk deletes a chunk artifact. Callers invoke this only after the
// artifact's rows are durably committed at the destination.
func (s *Store) RemoveChunk(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing chunk artifact %s: %w", path, err)
	}
	logging.Debug("removed chunk artifact %s", path)
	return nil
}

// RemoveTableDir deletes a table's staging directory and anything left in
// it. Used for teardown after a successful run.
func (s *Store) RemoveTableDir(table string) error {
	return os.RemoveAll(filepath.Join(s.root, table))
}

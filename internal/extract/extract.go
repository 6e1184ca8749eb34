// Package extract streams a source table and materializes it as a sequence
// of bounded-size staged chunks.
package extract

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbporter/dbporter/internal/coerce"
	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/logging"
	"github.com/dbporter/dbporter/internal/staging"
)

// TotalUnknown is the TotalChunks sentinel used while the chunk count
// cannot be determined yet. Consumers must tolerate it; the final chunk of
// a table always carries the real total.
const TotalUnknown = -1

// Chunk describes one staged chunk, ready for import.
type Chunk struct {
	Table       string
	Schema      string
	Index       int // 0-based, contiguous per table
	TotalChunks int // TotalUnknown until extraction can tell
	Columns     []string
	Path        string // staging artifact holding this chunk's rows
	Rows        int
}

// Error wraps any failure on the extraction side: source connectivity,
// row decoding, or staging writes.
type Error struct {
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting table %s: %v", e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor reads one source table in chunkSize-row chunks.
type Extractor struct {
	db        *sql.DB
	dialect   dialect.Dialect
	store     *staging.Store
	chunkSize int
}

// New creates an extractor. chunkSize must be positive.
func New(db *sql.DB, d dialect.Dialect, store *staging.Store, chunkSize int) *Extractor {
	return &Extractor{db: db, dialect: d, store: store, chunkSize: chunkSize}
}

// Run scans the whole table in cursor order, staging a chunk every
// chunkSize rows, and calls fn for each chunk as it becomes ready. A
// zero-row table produces no chunks. totalRows, when known (>= 0), lets
// every chunk carry its final TotalChunks up front; pass a negative value
// otherwise and the count is resolved on the last chunk.
//
// Extraction failures are returned as *Error. An error from fn aborts the
// scan and is returned unwrapped so the caller can tell its own failures
// from extraction ones. The cursor is closed on every exit path.
func (e *Extractor) Run(ctx context.Context, table, schemaName string, cols []string, totalRows int64, fn func(Chunk) error) (int, error) {
	totalChunks := TotalUnknown
	if totalRows >= 0 {
		totalChunks = int((totalRows + int64(e.chunkSize) - 1) / int64(e.chunkSize))
	}

	dir, err := e.store.TableDir(table)
	if err != nil {
		return 0, &Error{Table: table, Err: err}
	}

	query := dialect.SelectAll(e.dialect, schemaName, table, cols)
	logging.Debug("extraction query: %s", query)

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return 0, &Error{Table: table, Err: fmt.Errorf("opening cursor: %w", err)}
	}
	defer rows.Close()

	var (
		buf      = make([][]string, 0, e.chunkSize)
		emitted  = 0
		rowCount = 0
	)

	flush := func(last bool) error {
		if len(buf) == 0 {
			return nil
		}
		total := totalChunks
		if last && total == TotalUnknown {
			total = emitted + 1
		}
		path, err := e.store.WriteChunk(dir, emitted, cols, buf)
		if err != nil {
			return &Error{Table: table, Err: err}
		}
		chunk := Chunk{
			Table:       table,
			Schema:      schemaName,
			Index:       emitted,
			TotalChunks: total,
			Columns:     cols,
			Path:        path,
			Rows:        len(buf),
		}
		logging.Info("extracted chunk %d of %s (%d rows)", chunk.Index, table, chunk.Rows)
		if err := fn(chunk); err != nil {
			return err
		}
		emitted++
		buf = buf[:0]
		return nil
	}

	scan := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range scan {
		ptrs[i] = &scan[i]
	}

	for rows.Next() {
		// Flush before appending so a full buffer only goes out once the
		// cursor has proven more rows exist; the true last chunk is then
		// always flushed below with the resolved total.
		if len(buf) >= e.chunkSize {
			if err := flush(false); err != nil {
				return emitted, err
			}
		}
		if err := rows.Scan(ptrs...); err != nil {
			return emitted, &Error{Table: table, Err: fmt.Errorf("scanning row %d: %w", rowCount, err)}
		}
		buf = append(buf, coerce.RowToText(scan))
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return emitted, &Error{Table: table, Err: fmt.Errorf("cursor failed after %d rows: %w", rowCount, err)}
	}

	if err := flush(true); err != nil {
		return emitted, err
	}

	logging.Debug("extraction of %s complete: %d rows in %d chunks", table, rowCount, emitted)
	return emitted, nil
}

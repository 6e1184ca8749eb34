// Package load imports staged chunks into the destination table.
package load

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dbporter/dbporter/internal/coerce"
	"github.com/dbporter/dbporter/internal/dialect"
	"github.com/dbporter/dbporter/internal/extract"
	"github.com/dbporter/dbporter/internal/logging"
	"github.com/dbporter/dbporter/internal/staging"
)

// Error wraps any failure on the import side: destination connectivity,
// rejected inserts, or staging reads. The chunk's staging artifact is left
// intact so the chunk can be retried without re-extraction.
type Error struct {
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("importing into table %s: %v", e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Importer loads staged chunks into one destination.
type Importer struct {
	db        *sql.DB
	dialect   dialect.Dialect
	store     *staging.Store
	schema    string
	batchSize int
}

// New creates an importer writing into schema on db. batchSize bounds the
// rows committed per transaction.
func New(db *sql.DB, d dialect.Dialect, store *staging.Store, schema string, batchSize int) *Importer {
	return &Importer{db: db, dialect: d, store: store, schema: schema, batchSize: batchSize}
}

// Run imports one chunk. When createTable is set it first issues the
// idempotent wide-text CREATE TABLE (callers set it on chunk index 0
// only). Rows are inserted in batches, each committed in its own
// transaction, so a mid-chunk failure loses at most one batch. On success
// the staging artifact is deleted and the imported row count returned; on
// failure the artifact is retained and an *Error returned.
func (im *Importer) Run(ctx context.Context, chunk extract.Chunk, createTable bool) (int64, error) {
	if createTable {
		ddl := im.dialect.CreateTableDDL(im.schema, chunk.Table, chunk.Columns)
		logging.Debug("create table: %s", ddl)
		if _, err := im.db.ExecContext(ctx, ddl); err != nil {
			return 0, &Error{Table: chunk.Table, Err: fmt.Errorf("creating table: %w", err)}
		}
	}

	r, err := im.store.OpenChunk(chunk.Path)
	if err != nil {
		return 0, &Error{Table: chunk.Table, Err: err}
	}
	defer r.Close()

	var (
		imported int64
		batch    = make([][]string, 0, im.batchSize)
	)
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, &Error{Table: chunk.Table, Err: err}
		}
		batch = append(batch, row)

		if len(batch) >= im.batchSize {
			if err := im.insertBatch(ctx, chunk, batch); err != nil {
				return imported, err
			}
			imported += int64(len(batch))
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := im.insertBatch(ctx, chunk, batch); err != nil {
			return imported, err
		}
		imported += int64(len(batch))
	}

	// Every row is committed; the artifact has served its purpose.
	// Cleanup is best-effort: a leftover artifact is harmless, lost rows
	// are not.
	if err := im.store.RemoveChunk(chunk.Path); err != nil {
		logging.Warn("could not remove staged chunk after import: %v", err)
	}

	logging.Info("imported chunk %d of %s (%d rows)", chunk.Index, chunk.Table, imported)
	return imported, nil
}

// insertBatch writes one batch inside a single transaction, splitting it
// into as many multi-row INSERT statements as the dialect's bind limits
// require.
func (im *Importer) insertBatch(ctx context.Context, chunk extract.Chunk, batch [][]string) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Table: chunk.Table, Err: fmt.Errorf("beginning transaction: %w", err)}
	}

	maxRows := im.dialect.MaxRowsPerInsert(len(chunk.Columns))
	for start := 0; start < len(batch); start += maxRows {
		end := start + maxRows
		if end > len(batch) {
			end = len(batch)
		}
		rows := batch[start:end]

		query := im.dialect.InsertSQL(im.schema, chunk.Table, chunk.Columns, len(rows))
		args := make([]any, 0, len(rows)*len(chunk.Columns))
		for _, row := range rows {
			args = append(args, coerce.Params(row)...)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return &Error{Table: chunk.Table, Err: fmt.Errorf("inserting rows: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Table: chunk.Table, Err: fmt.Errorf("committing batch: %w", err)}
	}
	return nil
}

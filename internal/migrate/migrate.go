// Package migrate coordinates one source-table-to-destination transfer:
// column resolution, chunked extraction, and strictly sequential import.
package migrate

import (
	"context"
	"fmt"

	"github.com/dbporter/dbporter/internal/dbconn"
	"github.com/dbporter/dbporter/internal/extract"
	"github.com/dbporter/dbporter/internal/load"
	"github.com/dbporter/dbporter/internal/logging"
	"github.com/dbporter/dbporter/internal/schema"
	"github.com/dbporter/dbporter/internal/staging"
)

const (
	// DefaultChunkSize is the rows staged per chunk.
	DefaultChunkSize = 1_000_000
	// DefaultBatchSize is the rows committed per insert transaction.
	DefaultBatchSize = 1000
)

// Job is one table migration request. It exists for a single run and is
// never persisted.
type Job struct {
	Source *dbconn.Config
	Target *dbconn.Config

	Table  string
	Schema string // source-side qualifier, optional

	ChunkSize int      // defaults to DefaultChunkSize
	BatchSize int      // defaults to DefaultBatchSize
	Columns   []string // optional subset override; empty means all columns

	StagingRoot string // defaults to a fresh temp directory

	// OnStart, when set, is called once after the source row count has
	// been estimated; totalRows is negative when unknown.
	OnStart func(totalRows int64)

	// OnChunk, when set, is called after each chunk is imported.
	OnChunk func(chunk extract.Chunk, rowsImported int64)
}

// Result reports a completed run.
type Result struct {
	ChunksProcessed int
	RowsProcessed   int64
}

// Run migrates one table end to end. Chunks are consumed strictly in
// order; the first import failure aborts the job. Chunks imported before
// a failure stay committed at the destination, so a failed run leaves the
// target table holding a prefix of the source rows.
func Run(ctx context.Context, job Job) (Result, error) {
	var res Result

	if job.Table == "" {
		return res, fmt.Errorf("migration job has no table")
	}
	if job.ChunkSize <= 0 {
		job.ChunkSize = DefaultChunkSize
	}
	if job.BatchSize <= 0 {
		job.BatchSize = DefaultBatchSize
	}

	srcDialect, err := job.Source.Dialect()
	if err != nil {
		return res, err
	}
	tgtDialect, err := job.Target.Dialect()
	if err != nil {
		return res, err
	}

	srcDB, err := job.Source.Open(ctx)
	if err != nil {
		return res, fmt.Errorf("source: %w", err)
	}
	defer srcDB.Close()

	tgtDB, err := job.Target.Open(ctx)
	if err != nil {
		return res, fmt.Errorf("target: %w", err)
	}
	defer tgtDB.Close()

	cols, err := schema.ColumnNames(ctx, srcDB, job.Source.Engine, job.Table, job.Schema, job.Columns)
	if err != nil {
		return res, err
	}

	totalRows := schema.EstimateRowCount(ctx, srcDB, job.Source.Engine, job.Table, job.Schema)
	if totalRows >= 0 {
		logging.Info("migrating %s: ~%d rows, chunk size %d", job.Table, totalRows, job.ChunkSize)
	} else {
		logging.Info("migrating %s: row count unknown, chunk size %d", job.Table, job.ChunkSize)
	}
	if job.OnStart != nil {
		job.OnStart(totalRows)
	}

	store, err := staging.NewStore(job.StagingRoot)
	if err != nil {
		return res, err
	}

	extractor := extract.New(srcDB, srcDialect, store, job.ChunkSize)
	importer := load.New(tgtDB, tgtDialect, store, job.Target.Schema, job.BatchSize)

	_, err = extractor.Run(ctx, job.Table, job.Schema, cols, totalRows, func(chunk extract.Chunk) error {
		rows, err := importer.Run(ctx, chunk, chunk.Index == 0)
		if err != nil {
			return err
		}
		res.ChunksProcessed++
		res.RowsProcessed += rows
		if job.OnChunk != nil {
			job.OnChunk(chunk, rows)
		}
		return nil
	})
	if err != nil {
		// Staged artifacts for the failed chunk stay on disk for manual
		// retry; report progress made so far alongside the failure.
		return res, fmt.Errorf("after %d chunks: %w", res.ChunksProcessed, err)
	}

	if err := store.RemoveTableDir(job.Table); err != nil {
		logging.Warn("staging cleanup failed: %v", err)
	}

	logging.Info("migration of %s complete: %d chunks, %d rows", job.Table, res.ChunksProcessed, res.RowsProcessed)
	return res, nil
}

package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/multierr"
)

// ChunkSize caps how many rows a single batch transaction touches. Larger
// sets are split; each chunk commits independently, so a failure mid-way
// leaves earlier chunks applied.
const ChunkSize = 500

// BatchReport describes the outcome of a chunked bulk operation. Bulk
// propagation is best-effort: callers inspect the report instead of getting
// a single boolean.
type BatchReport struct {
	Chunks  int   `json:"chunks"`
	Applied int   `json:"applied"`
	Failed  int   `json:"failed"`
	Err     error `json:"-"`
}

// Ok reports whether every chunk committed.
func (r BatchReport) Ok() bool { return r.Failed == 0 }

// applyChunked runs fn once per chunk of ids, each inside its own
// transaction. Failed chunks are recorded and the remaining chunks still
// run; errors are aggregated on the report.
func applyChunked(db *sql.DB, ids []int64, fn func(tx *sql.Tx, chunk []int64) error) BatchReport {
	var report BatchReport

	for start := 0; start < len(ids); start += ChunkSize {
		end := start + ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		report.Chunks++

		if err := inTx(db, func(tx *sql.Tx) error { return fn(tx, chunk) }); err != nil {
			report.Failed += len(chunk)
			report.Err = multierr.Append(report.Err, fmt.Errorf("chunk %d: %w", report.Chunks, err))
			continue
		}
		report.Applied += len(chunk)
	}

	return report
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

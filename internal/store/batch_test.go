package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/dmfarrell/trolley/internal/database"
)

func setupBatchTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyChunkedSplitsLargeSets(t *testing.T) {
	db := setupBatchTestDB(t)

	ids := make([]int64, ChunkSize+1)
	for i := range ids {
		ids[i] = int64(i)
	}

	var seen []int
	report := applyChunked(db, ids, func(tx *sql.Tx, chunk []int64) error {
		seen = append(seen, len(chunk))
		return nil
	})
	if report.Chunks != 2 {
		t.Errorf("chunks = %d, want 2", report.Chunks)
	}
	if report.Applied != ChunkSize+1 || report.Failed != 0 {
		t.Errorf("applied=%d failed=%d, want all applied", report.Applied, report.Failed)
	}
	if len(seen) != 2 || seen[0] != ChunkSize || seen[1] != 1 {
		t.Errorf("chunk sizes = %v, want [%d 1]", seen, ChunkSize)
	}
}

func TestApplyChunkedContinuesPastFailure(t *testing.T) {
	db := setupBatchTestDB(t)

	ids := make([]int64, 2*ChunkSize)
	for i := range ids {
		ids[i] = int64(i)
	}

	boom := errors.New("boom")
	call := 0
	report := applyChunked(db, ids, func(tx *sql.Tx, chunk []int64) error {
		call++
		if call == 1 {
			return boom
		}
		return nil
	})
	if report.Ok() {
		t.Fatal("report should not be ok after a failed chunk")
	}
	if report.Applied != ChunkSize || report.Failed != ChunkSize {
		t.Errorf("applied=%d failed=%d, want one chunk each", report.Applied, report.Failed)
	}
	if !errors.Is(report.Err, boom) {
		t.Errorf("err = %v, want wrapped chunk failure", report.Err)
	}
}

func TestApplyChunkedEmpty(t *testing.T) {
	db := setupBatchTestDB(t)

	report := applyChunked(db, nil, func(tx *sql.Tx, chunk []int64) error {
		return fmt.Errorf("should not run")
	})
	if report.Chunks != 0 || !report.Ok() {
		t.Errorf("report = %+v, want empty success", report)
	}
}

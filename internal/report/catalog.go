// Package report provides the sqlite-backed run catalog: one record per
// conversion run and one per processed block, so batch outcomes can be
// inspected after the fact with reflreport.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reflbase/reflbase/internal/errors"
)

// Run describes one converter invocation.
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	SpecSource   string // "default" or the spec file path
	Mode         string // "single" or "dir"
	BlocksTotal  int
	BlocksFailed int
}

// BlockRecord describes the outcome of one block within a run.
type BlockRecord struct {
	RunID      string
	BlockName  string
	OutputPath string
	Rows       int
	Columns    int
	Status     string // "ok" or "failed"
	Error      string
	Duration   time.Duration
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Catalog records conversion runs in a sqlite database. The converter is
// single-threaded, so a single write connection suffices.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		spec_source TEXT NOT NULL,
		mode TEXT NOT NULL,
		blocks_total INTEGER NOT NULL DEFAULT 0,
		blocks_failed INTEGER NOT NULL DEFAULT 0
	) WITHOUT ROWID`,
	`CREATE TABLE IF NOT EXISTS blocks (
		run_id TEXT NOT NULL,
		block_name TEXT NOT NULL,
		output_path TEXT,
		rows INTEGER NOT NULL DEFAULT 0,
		columns INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, block_name)
	) WITHOUT ROWID`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_status ON blocks(run_id, status)`,
}

// Open opens (creating if needed) the catalog at dbPath.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewReportError(errors.CodeCatalogOpen, "opening run catalog", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.NewReportError(errors.CodeCatalogOpen, "initializing run catalog schema", err)
		}
	}
	return &Catalog{db: db, dbPath: dbPath}, nil
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// BeginRun inserts a new run record and returns its id.
func (c *Catalog) BeginRun(ctx context.Context, specSource, mode string) (string, error) {
	runID := uuid.New().String()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, spec_source, mode) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UnixMilli(), specSource, mode)
	if err != nil {
		return "", errors.NewReportError(errors.CodeCatalogWrite, "recording run start", err)
	}
	return runID, nil
}

// RecordBlock inserts the outcome of one processed block.
func (c *Catalog) RecordBlock(ctx context.Context, rec BlockRecord) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blocks
		 (run_id, block_name, output_path, rows, columns, status, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.BlockName, rec.OutputPath, rec.Rows, rec.Columns,
		rec.Status, rec.Error, rec.Duration.Milliseconds())
	if err != nil {
		return errors.NewReportError(errors.CodeCatalogWrite, "recording block outcome", err)
	}
	return nil
}

// FinishRun closes out a run record with its totals.
func (c *Catalog) FinishRun(ctx context.Context, runID string, total, failed int) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, blocks_total = ?, blocks_failed = ? WHERE run_id = ?`,
		time.Now().UnixMilli(), total, failed, runID)
	if err != nil {
		return errors.NewReportError(errors.CodeCatalogWrite, "recording run finish", err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (c *Catalog) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, started_at, COALESCE(finished_at, 0), spec_source, mode,
		        blocks_total, blocks_failed
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.RunID, &started, &finished, &r.SpecSource, &r.Mode,
			&r.BlocksTotal, &r.BlocksFailed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished != 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListBlocks returns the block records of one run in block-name order.
func (c *Catalog) ListBlocks(ctx context.Context, runID string) ([]BlockRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, block_name, COALESCE(output_path, ''), rows, columns,
		        status, COALESCE(error, ''), duration_ms
		 FROM blocks WHERE run_id = ? ORDER BY block_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}
	defer rows.Close()

	var recs []BlockRecord
	for rows.Next() {
		var rec BlockRecord
		var durMs int64
		if err := rows.Scan(&rec.RunID, &rec.BlockName, &rec.OutputPath, &rec.Rows,
			&rec.Columns, &rec.Status, &rec.Error, &durMs); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		rec.Duration = time.Duration(durMs) * time.Millisecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

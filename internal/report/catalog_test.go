package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalog_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	runID, err := c.BeginRun(ctx, "default", "dir")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	ok := BlockRecord{
		RunID: runID, BlockName: "r1abcsf", OutputPath: "/out/r1abcsf.rcol",
		Rows: 120, Columns: 5, Status: StatusOK, Duration: 30 * time.Millisecond,
	}
	failed := BlockRecord{
		RunID: runID, BlockName: "r2defsf", Status: StatusFailed,
		Error: "[CONVERT:MISSING_INDEX_COLUMN] Miller index tag not found: _refln.index_k",
	}
	if err := c.RecordBlock(ctx, ok); err != nil {
		t.Fatalf("RecordBlock: %v", err)
	}
	if err := c.RecordBlock(ctx, failed); err != nil {
		t.Fatalf("RecordBlock: %v", err)
	}
	if err := c.FinishRun(ctx, runID, 2, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	r := runs[0]
	if r.RunID != runID || r.BlocksTotal != 2 || r.BlocksFailed != 1 {
		t.Errorf("run = %+v", r)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt not recorded")
	}
	if r.SpecSource != "default" || r.Mode != "dir" {
		t.Errorf("run metadata = %+v", r)
	}

	blocks, err := c.ListBlocks(ctx, runID)
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if blocks[0].BlockName != "r1abcsf" || blocks[0].Status != StatusOK || blocks[0].Rows != 120 {
		t.Errorf("blocks[0] = %+v", blocks[0])
	}
	if blocks[1].Status != StatusFailed || blocks[1].Error == "" {
		t.Errorf("blocks[1] = %+v", blocks[1])
	}
	if blocks[0].Duration != 30*time.Millisecond {
		t.Errorf("duration = %v", blocks[0].Duration)
	}
}

func TestCatalog_MultipleRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	first, err := c.BeginRun(ctx, "default", "single")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := c.BeginRun(ctx, "custom.spec", "single")
	if err != nil {
		t.Fatal(err)
	}

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != second || runs[1].RunID != first {
		t.Errorf("runs out of order: %+v", runs)
	}
}

func TestCatalog_ReopenSeesData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	c, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	runID, err := c.BeginRun(ctx, "default", "single")
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	c2, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	runs, err := c2.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != runID {
		t.Errorf("reopened catalog lost data: %+v", runs)
	}
}

func TestCatalog_ListBlocksEmptyRun(t *testing.T) {
	c := openTestCatalog(t)
	blocks, err := c.ListBlocks(context.Background(), "no-such-run")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 0 {
		t.Errorf("blocks = %+v", blocks)
	}
}

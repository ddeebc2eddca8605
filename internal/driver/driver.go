// Package driver runs conversions over one or many input blocks,
// isolating per-block failures and recording outcomes.
package driver

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/reflbase/reflbase/internal/convert"
	"github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/internal/report"
	"github.com/reflbase/reflbase/internal/storage"
	"github.com/reflbase/reflbase/internal/table"
	"github.com/reflbase/reflbase/pkg/types"
)

// Options steers one driver run. Exactly one of OutPath (single-target
// mode) and OutDir (directory mode) must be set.
type Options struct {
	// BlockName selects the block in single-target mode; empty takes the
	// first block.
	BlockName string

	// OutPath is the output file in single-target mode.
	OutPath string

	// OutDir enables directory mode: every block is converted to
	// OutDir/<block-name>.rcol.
	OutDir string

	// Mirror, when set, receives a copy of every successfully written
	// file under MirrorPrefix.
	Mirror       storage.ObjectStorage
	MirrorPrefix string

	// Catalog, when set, records the run and its block outcomes.
	Catalog *report.Catalog

	// SpecSource names the spec origin in the run catalog.
	SpecSource string

	// Verbose enables progress logging.
	Verbose bool

	// Logger receives progress and error lines. Defaults to a stderr
	// logger.
	Logger *log.Logger
}

// BlockResult is the outcome of converting one block.
type BlockResult struct {
	Block    string
	Path     string
	Rows     int
	Columns  int
	Duration time.Duration
	Err      error
}

// FailedCount returns how many results carry an error.
func FailedCount(results []BlockResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Driver converts blocks from a source using one converter and writer.
type Driver struct {
	Converter *convert.Converter
	Writer    convert.Writer
	Opts      Options
}

func (d *Driver) logger() *log.Logger {
	if d.Opts.Logger != nil {
		return d.Opts.Logger
	}
	return log.New(os.Stderr, "", 0)
}

// Run converts the selected block (single-target mode) or every block
// (directory mode). In single-target mode any block failure is returned
// as the run error. In directory mode block failures are logged and
// recorded but do not stop the remaining blocks; the caller derives the
// overall status from the results.
func (d *Driver) Run(ctx context.Context, src table.Source) ([]BlockResult, error) {
	blocks, err := src.Blocks()
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	mode := "single"
	if d.Opts.OutDir != "" {
		mode = "dir"
	}

	var runID string
	if d.Opts.Catalog != nil {
		runID, err = d.Opts.Catalog.BeginRun(ctx, d.Opts.SpecSource, mode)
		if err != nil {
			// The catalog is bookkeeping; a broken one must not block
			// conversion.
			d.logger().Printf("WARNING: %v", err)
		}
	}

	var results []BlockResult
	if mode == "dir" {
		for _, b := range blocks {
			outPath := filepath.Join(d.Opts.OutDir, b.Name+".rcol")
			res := d.convertOne(ctx, b, outPath)
			if res.Err != nil {
				d.logger().Printf("ERROR: %v", res.Err)
			}
			results = append(results, res)
		}
		d.record(ctx, runID, results)
		return results, nil
	}

	b, err := selectBlock(blocks, d.Opts.BlockName)
	if err != nil {
		d.record(ctx, runID, results)
		return nil, err
	}
	res := d.convertOne(ctx, b, d.Opts.OutPath)
	results = append(results, res)
	d.record(ctx, runID, results)
	if res.Err != nil {
		return results, res.Err
	}
	return results, nil
}

// selectBlock picks the named block, or the first one when no name is
// given.
func selectBlock(blocks []*types.Block, name string) (*types.Block, error) {
	if name == "" {
		if len(blocks) == 0 {
			return nil, errors.NewInputError(errors.CodeBlockNotFound, "input has no blocks")
		}
		return blocks[0], nil
	}
	for _, b := range blocks {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, errors.NewInputError(errors.CodeBlockNotFound, "block not found: "+name)
}

func (d *Driver) convertOne(ctx context.Context, b *types.Block, outPath string) BlockResult {
	start := time.Now()
	res := BlockResult{Block: b.Name, Path: outPath}

	ds, _, err := d.Converter.ConvertBlock(b)
	if err != nil {
		res.Err = fmt.Errorf("block %s: %w", b.Name, err)
		res.Duration = time.Since(start)
		return res
	}
	res.Rows = ds.NumRows
	res.Columns = len(ds.Columns)

	if d.Opts.Verbose {
		d.logger().Printf("Writing %s ...", outPath)
	}
	if err := d.Writer.Write(ds, outPath); err != nil {
		res.Err = fmt.Errorf("block %s: %w", b.Name, err)
		res.Duration = time.Since(start)
		return res
	}

	if d.Opts.Mirror != nil {
		objectPath := path.Join(d.Opts.MirrorPrefix, filepath.Base(outPath))
		if err := d.Opts.Mirror.Upload(ctx, outPath, objectPath); err != nil {
			res.Err = fmt.Errorf("block %s: mirroring %s: %w", b.Name, objectPath, err)
			res.Duration = time.Since(start)
			return res
		}
	}

	res.Duration = time.Since(start)
	return res
}

// record writes results into the run catalog, if one is attached.
func (d *Driver) record(ctx context.Context, runID string, results []BlockResult) {
	if d.Opts.Catalog == nil || runID == "" {
		return
	}
	for _, r := range results {
		status := report.StatusOK
		errText := ""
		if r.Err != nil {
			status = report.StatusFailed
			errText = r.Err.Error()
		}
		rec := report.BlockRecord{
			RunID:      runID,
			BlockName:  r.Block,
			OutputPath: r.Path,
			Rows:       r.Rows,
			Columns:    r.Columns,
			Status:     status,
			Error:      errText,
			Duration:   r.Duration,
		}
		if err := d.Opts.Catalog.RecordBlock(ctx, rec); err != nil {
			d.logger().Printf("WARNING: %v", err)
		}
	}
	if err := d.Opts.Catalog.FinishRun(ctx, runID, len(results), FailedCount(results)); err != nil {
		d.logger().Printf("WARNING: %v", err)
	}
}

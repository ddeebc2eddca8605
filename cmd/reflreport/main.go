// Package main implements the reflreport query binary.
// It lists conversion runs from a run catalog, or the per-block
// outcomes of one run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/reflbase/reflbase/internal/report"
)

func main() {
	dbPath := flag.String("db", "", "run catalog database (required)")
	runID := flag.String("run", "", "show the blocks of this run instead of listing runs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reflreport -db FILE [-run ID]\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cat, err := report.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open run catalog: %v", err)
	}
	defer cat.Close()

	ctx := context.Background()
	if *runID != "" {
		if err := printBlocks(ctx, cat, *runID); err != nil {
			log.Fatalf("Failed to list blocks: %v", err)
		}
		return
	}
	if err := printRuns(ctx, cat); err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
}

func printRuns(ctx context.Context, cat *report.Catalog) error {
	runs, err := cat.ListRuns(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tMODE\tSPEC\tBLOCKS\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Mode, r.SpecSource, r.BlocksTotal, r.BlocksFailed)
	}
	return w.Flush()
}

func printBlocks(ctx context.Context, cat *report.Catalog, runID string) error {
	blocks, err := cat.ListBlocks(ctx, runID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tSTATUS\tROWS\tCOLUMNS\tDURATION\tOUTPUT\tERROR")
	for _, b := range blocks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			b.BlockName, b.Status, b.Rows, b.Columns, b.Duration,
			b.OutputPath, b.Error)
	}
	return w.Flush()
}

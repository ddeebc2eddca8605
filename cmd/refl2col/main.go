// Package main implements the refl2col converter binary.
// It turns tabular reflection blocks into columnar .rcol files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/reflbase/reflbase/internal/colfile"
	"github.com/reflbase/reflbase/internal/config"
	"github.com/reflbase/reflbase/internal/convert"
	"github.com/reflbase/reflbase/internal/driver"
	rerrors "github.com/reflbase/reflbase/internal/errors"
	"github.com/reflbase/reflbase/internal/report"
	"github.com/reflbase/reflbase/internal/spec"
	"github.com/reflbase/reflbase/internal/storage"
	"github.com/reflbase/reflbase/internal/table"
)

const (
	exitOK          = 0
	exitBlockFailed = 1
	exitSpecError   = 2
)

// historyFlag collects repeated -history lines.
type historyFlag []string

func (h *historyFlag) String() string { return strings.Join(*h, "; ") }

func (h *historyFlag) Set(v string) error {
	*h = append(*h, v)
	return nil
}

type cliFlags struct {
	block      string
	dir        string
	specPath   string
	printSpec  bool
	title      string
	history    historyFlag
	unmerged   bool
	configPath string
	dest       string
	reportDB   string
	verbose    bool
}

func parseFlags() (*cliFlags, []string) {
	f := &cliFlags{}
	flag.StringVar(&f.block, "block", "", "block to convert (single-target mode; default first)")
	flag.StringVar(&f.dir, "dir", "", "convert every block to DIR/<block>.rcol")
	flag.StringVar(&f.specPath, "spec", "", "conversion spec file (default built-in)")
	flag.BoolVar(&f.printSpec, "print-spec", false, "print the default conversion spec and exit")
	flag.StringVar(&f.title, "title", "", "output title")
	flag.Var(&f.history, "history", "append a history line (repeatable)")
	flag.BoolVar(&f.unmerged, "unmerged", false, "force unmerged conversion mode")
	flag.StringVar(&f.configPath, "config", "", "tool config file (YAML or JSON)")
	flag.StringVar(&f.dest, "dest", "", "mirror outputs to destination (local:PATH or s3:BUCKET)")
	flag.StringVar(&f.reportDB, "report", "", "record per-block outcomes in this run catalog")
	flag.BoolVar(&f.verbose, "v", false, "verbose diagnostics")
	flag.Usage = usage
	flag.Parse()
	return f, flag.Args()
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  refl2col [options] INPUT OUTPUT.rcol
  refl2col -dir DIRECTORY [options] INPUT

INPUT is a JSON block file ("-" reads stdin). Options must precede the
positional arguments.

Options:
`)
	flag.PrintDefaults()
}

// loadConfig applies the precedence flag > env > file > default.
func loadConfig(f *cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	if f.specPath != "" {
		cfg.SpecPath = f.specPath
	}
	if f.reportDB != "" {
		cfg.ReportDB = f.reportDB
	}
	if f.dest != "" {
		dest, err := parseDest(f.dest)
		if err != nil {
			return nil, err
		}
		dest.Prefix = cfg.Dest.Prefix
		cfg.Dest = dest
	}
	if f.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDest decodes a -dest value of the form local:PATH or s3:BUCKET.
func parseDest(v string) (config.DestConfig, error) {
	scheme, rest, ok := strings.Cut(v, ":")
	if !ok || rest == "" {
		return config.DestConfig{}, fmt.Errorf("invalid dest %q (want local:PATH or s3:BUCKET)", v)
	}
	switch scheme {
	case "local":
		return config.DestConfig{Type: config.DestLocal, Path: rest}, nil
	case "s3":
		return config.DestConfig{Type: config.DestS3, Bucket: strings.TrimPrefix(rest, "//")}, nil
	default:
		return config.DestConfig{}, fmt.Errorf("unknown dest scheme %q (want local or s3)", scheme)
	}
}

func openMirror(ctx context.Context, dest config.DestConfig) (storage.ObjectStorage, error) {
	switch dest.Type {
	case config.DestNone:
		return nil, nil
	case config.DestLocal:
		return storage.NewLocalStorage(dest.Path)
	case config.DestS3:
		return storage.NewS3Storage(ctx, dest.Bucket, storage.S3Config{
			Region:       dest.Region,
			Endpoint:     dest.Endpoint,
			UsePathStyle: dest.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown dest type: %s", dest.Type)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	f, args := parseFlags()
	logger := log.New(os.Stderr, "", 0)

	if f.printSpec {
		if err := spec.Default().Print(os.Stdout); err != nil {
			logger.Printf("ERROR: %v", err)
			return exitBlockFailed
		}
		return exitOK
	}

	cfg, err := loadConfig(f)
	if err != nil {
		logger.Printf("ERROR: %v", err)
		return exitSpecError
	}

	sp := spec.Default()
	specSource := "default"
	if cfg.SpecPath != "" {
		sp, err = spec.Load(cfg.SpecPath)
		if err != nil {
			logger.Printf("ERROR: %v", err)
			return exitSpecError
		}
		specSource = cfg.SpecPath
	}

	if f.dir == "" && len(args) != 2 {
		usage()
		return exitSpecError
	}
	if f.dir != "" && len(args) != 1 {
		usage()
		return exitSpecError
	}
	input := args[0]

	ctx := context.Background()

	mirror, err := openMirror(ctx, cfg.Dest)
	if err != nil {
		logger.Printf("ERROR: %v", err)
		return exitBlockFailed
	}

	var catalog *report.Catalog
	if cfg.ReportDB != "" {
		catalog, err = report.Open(cfg.ReportDB)
		if err != nil {
			logger.Printf("ERROR: %v", err)
			return exitBlockFailed
		}
		defer catalog.Close()
	}

	opts := driver.Options{
		BlockName:    f.block,
		OutDir:       f.dir,
		Mirror:       mirror,
		MirrorPrefix: cfg.Dest.Prefix,
		Catalog:      catalog,
		SpecSource:   specSource,
		Verbose:      cfg.Verbose,
		Logger:       logger,
	}
	if f.dir == "" {
		opts.OutPath = args[1]
	}

	d := &driver.Driver{
		Converter: &convert.Converter{
			Spec:          sp,
			Title:         f.title,
			History:       []string(f.history),
			ForceUnmerged: f.unmerged,
			Verbose:       cfg.Verbose,
			Diag:          os.Stderr,
		},
		Writer: colfile.NewWriter(),
		Opts:   opts,
	}

	results, err := d.Run(ctx, table.JSONSource{Path: input})
	if err != nil {
		logger.Printf("ERROR: %v", err)
		if rerrors.IsSpecError(err) {
			return exitSpecError
		}
		return exitBlockFailed
	}
	if n := driver.FailedCount(results); n > 0 {
		logger.Printf("%d of %d blocks failed", n, len(results))
		return exitBlockFailed
	}
	if cfg.Verbose {
		for _, r := range results {
			logger.Printf("%s: %d rows, %d columns -> %s (%s)",
				r.Block, r.Rows, r.Columns, r.Path, r.Duration)
		}
	}
	return exitOK
}

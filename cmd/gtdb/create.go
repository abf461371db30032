package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/banshee-data/gtdb/internal/blobstore"
	"github.com/banshee-data/gtdb/internal/catalog"
	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/logging"
	"github.com/banshee-data/gtdb/internal/report"
)

func runCreate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	cf := newConfigFlags(fs, true)
	cfg, logger, err := cf.load(args)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := cfg.BuildOptions()
	opts.Logger = logger
	blobOpts := cfg.BlobOptions()
	opts.OpenSink = func(ctx context.Context, dbDir string) (blobstore.Sink, error) {
		return blobstore.Open(ctx, blobOpts, dbDir)
	}

	res, err := gtdb.Build(ctx, opts)
	if err != nil {
		return err
	}

	if cfg.Catalog != "" {
		if err := recordRun(ctx, cfg.Catalog, res, logger); err != nil {
			return err
		}
	}

	title := fmt.Sprintf("%s ground-truth database", strings.ToLower(res.Family))
	if err := writeReports(report.FromIndex(title, res.Index), cfg.ReportPNG, cfg.ReportHTML); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run %s: %d objects in %d classes from %d frames\n",
		res.RunID, res.Index.Len(), len(res.Index.Classes()), res.Frames)
	fmt.Fprintf(stdout, "database: %s\nindex:    %s\n", res.DBPath, res.IndexPath)
	return nil
}

func recordRun(ctx context.Context, path string, res *gtdb.BuildResult, logger *zap.Logger) error {
	c, err := catalog.Open(path, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.RecordBuild(ctx, catalog.RunFromBuild(res), res.Index); err != nil {
		return err
	}
	logging.Ops(logger).Info("recorded run in catalog", zap.String("catalog", path), zap.String("run_id", res.RunID))
	return nil
}

// writeReports renders the class distribution to whichever outputs are set.
func writeReports(counts report.ClassCounts, pngPath, htmlPath string) error {
	fsys := fsutil.OSFileSystem{}
	if pngPath != "" {
		if err := counts.WritePNG(fsys, pngPath); err != nil {
			return fmt.Errorf("write chart %s: %w", pngPath, err)
		}
	}
	if htmlPath != "" {
		var buf bytes.Buffer
		if err := counts.WriteHTML(&buf); err != nil {
			return fmt.Errorf("render page %s: %w", htmlPath, err)
		}
		if err := fsutil.WriteFileAtomic(fsys, htmlPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/report"
)

func runInfo(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	cf := newConfigFlags(fs, false)
	cfg, logger, err := cf.load(args)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := cfg.SummaryOptions()
	opts.Logger = logger
	summary, err := gtdb.Summarize(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "frames: %d of %d\nobjects: %d\n\n", summary.Frames, summary.DatasetLen, summary.Index.Len())
	printStats(stdout, summary.Stats)

	title := fmt.Sprintf("%s class distribution", strings.ToLower(cfg.Family))
	return writeReports(report.FromStats(title, summary.Stats), cfg.ReportPNG, cfg.ReportHTML)
}

func printStats(w io.Writer, stats []gtdb.ClassStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tCOUNT\tMEAN PTS\tMEDIAN PTS\tMIN\tMAX")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%d\t%d\n", s.Class, s.Count, s.MeanPoints, s.MedianPoints, s.MinPoints, s.MaxPoints)
	}
	_ = tw.Flush()
}

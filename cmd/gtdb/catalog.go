package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/gtdb/internal/catalog"
	"github.com/banshee-data/gtdb/internal/logging"
)

func runCatalog(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errors.New("catalog: expected runs, query or classes")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "runs", "query", "classes":
	default:
		return fmt.Errorf("catalog: unknown subcommand %q", sub)
	}

	fs := flag.NewFlagSet("catalog "+sub, flag.ContinueOnError)
	dbPath := fs.String("db", "gtdb.db", "SQLite catalog")
	runID := fs.String("run", "", "Run id (default latest run)")
	class := fs.String("class", "", "Only this class")
	minPoints := fs.Int("min-points", 0, "Minimum points per object")
	dropDifficulty := fs.String("drop-difficulty", "", "Comma-separated difficulty levels to exclude")
	limit := fs.Int("limit", 50, "Maximum entries to print; 0 prints all")
	logLevel := fs.String("log-level", "warn", "Log level")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: *logLevel})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := catalog.Open(*dbPath, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	switch sub {
	case "runs":
		runs, err := c.Runs(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tFAMILY\tCREATED\tWORKERS\tFRAMES\tENTRIES\tDURATION\tINDEX")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.RunID, r.Family, r.CreatedAt.UTC().Format(time.RFC3339), r.Workers, r.Frames, r.Entries,
				r.Duration.Round(time.Millisecond), r.IndexPath)
		}
		return tw.Flush()

	case "query":
		drop, err := parseInts(*dropDifficulty)
		if err != nil {
			return err
		}
		id, err := resolveRun(ctx, c, *runID)
		if err != nil {
			return err
		}
		entries, err := c.Query(ctx, catalog.Filter{
			RunID:        id,
			Class:        *class,
			MinPoints:    *minPoints,
			Difficulties: drop,
			Limit:        *limit,
		})
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CLASS\tFRAME\tGT\tPOINTS\tDIFFICULTY\tGROUP\tPATH")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				e.Name, e.ImageIdx, e.GTIdx, e.NumPointsInGT, e.Difficulty, e.GroupID, e.Path)
		}
		return tw.Flush()

	default: // classes
		id, err := resolveRun(ctx, c, *runID)
		if err != nil {
			return err
		}
		counts, err := c.ClassCounts(ctx, id)
		if err != nil {
			return err
		}
		version, dirty, err := c.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run %s (schema v%d", id, version)
		if dirty {
			fmt.Fprint(stdout, ", dirty")
		}
		fmt.Fprintln(stdout, ")")

		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CLASS\tENTRIES")
		for _, class := range slices.Sorted(maps.Keys(counts)) {
			fmt.Fprintf(tw, "%s\t%d\n", class, counts[class])
		}
		return tw.Flush()
	}
}

// resolveRun returns id, or the latest recorded run when id is empty.
func resolveRun(ctx context.Context, c *catalog.Catalog, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	latest, err := c.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	return latest.RunID, nil
}

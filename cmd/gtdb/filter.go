package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/jsonfile"
)

func runFilter(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	in := fs.String("in", "", "Index to read (required)")
	out := fs.String("out", "", "Index to write (required); the extension selects compression")
	minPoints := fs.String("min-points", "", "Per-class minimum points, e.g. car=5,pedestrian=10")
	dropDifficulty := fs.String("drop-difficulty", "", "Comma-separated difficulty levels to drop, e.g. -1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("filter: -in and -out are required")
	}

	thresholds, err := parseMinPoints(*minPoints)
	if err != nil {
		return err
	}
	drop, err := parseInts(*dropDifficulty)
	if err != nil {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	var idx gtdb.Index
	if err := jsonfile.Read(fsys, *in, &idx); err != nil {
		return err
	}
	filtered := idx.FilterByMinPoints(thresholds).FilterByDifficulty(drop)
	if err := jsonfile.Write(fsys, *out, filtered); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "kept %d of %d objects\n", filtered.Len(), idx.Len())
	for _, class := range idx.Classes() {
		fmt.Fprintf(stdout, "  %s: %d -> %d\n", class, len(idx[class]), len(filtered[class]))
	}
	return nil
}

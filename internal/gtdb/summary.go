package gtdb

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gtdb/internal/dataset"
	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/logging"
)

// SummaryOptions configures Summarize.
type SummaryOptions struct {
	Family      string
	DataRoot    string
	InfoPath    string
	Classes     []string
	NSweeps     int
	NumFeatures int
	MaxFrames   int

	ProgressEvery int
	OpenDataset   DatasetOpener
	FS            fsutil.FileSystem
	Logger        *zap.Logger
}

// ClassStats summarises the entries of one class.
type ClassStats struct {
	Class        string
	Count        int
	MeanPoints   float64
	MedianPoints float64
	MinPoints    int
	MaxPoints    int
}

// Summary is the result of a summary pass.
type Summary struct {
	DatasetLen int
	Frames     int
	Index      Index
	Stats      []ClassStats
}

// Summarize runs the extraction over the dataset on one goroutine without
// writing any blobs or index, and reports per-class counts. Classes outside
// the family vocabulary are dropped as in Build.
func Summarize(ctx context.Context, opts SummaryOptions) (*Summary, error) {
	family, err := LookupFamily(opts.Family)
	if err != nil {
		return nil, err
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	log := logging.Ops(opts.Logger)
	nsweeps := max(opts.NSweeps, 1)

	openDataset := opts.OpenDataset
	if openDataset == nil {
		openDataset = OpenInfoDataset
	}
	ds, err := openDataset(ctx, dataset.Options{
		InfoPath:    opts.InfoPath,
		RootPath:    opts.DataRoot,
		NSweeps:     nsweeps,
		NumFeatures: opts.NumFeatures,
		FS:          fsys,
	})
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	n := ds.Len()
	if opts.MaxFrames > 0 && opts.MaxFrames < n {
		n = opts.MaxFrames
	}
	progress := opts.ProgressEvery
	if progress == 0 {
		progress = DefaultProgressEvery
	}
	x := &Extractor{
		Dataset:       ds,
		Sampling:      family.Sampling,
		Classes:       opts.Classes,
		NSweeps:       nsweeps,
		ProgressEvery: progress,
		Logger:        opts.Logger,
	}
	part, err := x.ExtractRange(ctx, Range{End: n}.Indices())
	if err != nil {
		return nil, err
	}
	idx := Merge(family.Classes, []Index{part}, log)

	log.Info("dataset length", zap.String("info_path", opts.InfoPath), zap.Int("frames", ds.Len()))
	logCounts(log, idx)

	return &Summary{
		DatasetLen: ds.Len(),
		Frames:     n,
		Index:      idx,
		Stats:      Stats(idx),
	}, nil
}

// Stats computes per-class point statistics, sorted by class name.
func Stats(idx Index) []ClassStats {
	out := make([]ClassStats, 0, len(idx))
	for _, class := range idx.Classes() {
		entries := idx[class]
		if len(entries) == 0 {
			continue
		}
		pts := make([]float64, len(entries))
		for i, e := range entries {
			pts[i] = float64(e.NumPointsInGT)
		}
		slices.Sort(pts)
		out = append(out, ClassStats{
			Class:        class,
			Count:        len(entries),
			MeanPoints:   stat.Mean(pts, nil),
			MedianPoints: stat.Quantile(0.5, stat.Empirical, pts, nil),
			MinPoints:    int(pts[0]),
			MaxPoints:    int(pts[len(pts)-1]),
		})
	}
	return out
}

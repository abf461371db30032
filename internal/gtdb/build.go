package gtdb

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gtdb/internal/blobstore"
	"github.com/banshee-data/gtdb/internal/dataset"
	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/jsonfile"
	"github.com/banshee-data/gtdb/internal/logging"
	"github.com/banshee-data/gtdb/internal/timeutil"
)

// DefaultProgressEvery is the progress log interval used when none is set.
const DefaultProgressEvery = 100

// DatasetOpener opens the dataset a build or summary reads.
type DatasetOpener func(ctx context.Context, opts dataset.Options) (dataset.Accessor, error)

// SinkOpener opens the blob sink for the database directory dbDir.
type SinkOpener func(ctx context.Context, dbDir string) (blobstore.Sink, error)

// OpenInfoDataset opens an infos-file dataset.
func OpenInfoDataset(_ context.Context, opts dataset.Options) (dataset.Accessor, error) {
	return dataset.Open(opts)
}

// BuildOptions configures Build.
type BuildOptions struct {
	Family   string
	DataRoot string
	InfoPath string
	// Classes restricts the database to the listed classes when non-empty.
	Classes []string

	// DBPath and IndexPath override the family's default names under DataRoot.
	DBPath    string
	IndexPath string
	// AbsolutePaths stores sink locations in entries instead of paths
	// relative to the data root.
	AbsolutePaths bool
	Virtual       bool
	NSweeps       int
	NumFeatures   int
	Sensor        string

	Workers int
	// MaxFrames limits the build to the first frames of the dataset; zero
	// processes every frame.
	MaxFrames int
	// Format is the index format: json, zstd or lz4.
	Format        string
	ProgressEvery int

	OpenDataset DatasetOpener
	OpenSink    SinkOpener
	FS          fsutil.FileSystem
	Logger      *zap.Logger
	// Clock times the run; nil uses the wall clock.
	Clock timeutil.Clock
}

// BuildResult describes a finished build.
type BuildResult struct {
	RunID     string
	Family    string
	DataRoot  string
	DBPath    string
	IndexPath string
	Workers   int
	// DatasetLen is the length of the dataset; Frames the number processed.
	DatasetLen int
	Frames     int
	Index      Index
	Started    time.Time
	Duration   time.Duration
}

// Paths resolves the database directory and index file of opts.
func (opts BuildOptions) Paths(f Family) (dbPath, indexPath string, err error) {
	ext, err := jsonfile.Extension(opts.Format)
	if err != nil {
		return "", "", err
	}
	dbName, indexName, err := f.Naming.Names(NamingParams{
		NSweeps: max(opts.NSweeps, 1),
		Sensor:  opts.Sensor,
		Virtual: opts.Virtual,
		Ext:     ext,
	})
	if err != nil {
		return "", "", err
	}
	dbPath, indexPath = opts.DBPath, opts.IndexPath
	if dbPath == "" {
		dbPath = filepath.Join(opts.DataRoot, dbName)
	}
	if indexPath == "" {
		indexPath = filepath.Join(opts.DataRoot, indexName)
	}
	return dbPath, indexPath, nil
}

// Build extracts the ground-truth database of a dataset. Frames are split
// into Workers+1 contiguous slices processed by at most Workers goroutines;
// the partial indices are merged in slice order and written atomically to
// the index path. If any slice fails, the first error is returned, the other
// slices are cancelled and no index is written.
func Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	clock := timeutil.OrReal(opts.Clock)
	started := clock.Now()
	family, err := LookupFamily(opts.Family)
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", opts.Workers)
	}
	dbPath, indexPath, err := opts.Paths(family)
	if err != nil {
		return nil, fmt.Errorf("resolve output paths: %w", err)
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

	openSink := opts.OpenSink
	if openSink == nil {
		openSink = func(_ context.Context, dir string) (blobstore.Sink, error) {
			return blobstore.NewLocal(fsys, dir), nil
		}
	}
	sink, err := openSink(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open blob sink: %w", err)
	}
	if err := sink.MkdirAll(ctx, "."); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	n := ds.Len()
	if opts.MaxFrames > 0 && opts.MaxFrames < n {
		n = opts.MaxFrames
	}
	progress := opts.ProgressEvery
	if progress == 0 {
		progress = DefaultProgressEvery
	}

	runID := uuid.New().String()
	log.Info("building ground-truth database",
		zap.String("run_id", runID),
		zap.String("family", family.Name),
		zap.String("db_path", dbPath),
		zap.String("index_path", indexPath),
		zap.Int("frames", n),
		zap.Int("workers", opts.Workers))

	x := &Extractor{
		Dataset:       ds,
		Sampling:      family.Sampling,
		Sink:          sink,
		DBName:        filepath.Base(dbPath),
		AbsolutePaths: opts.AbsolutePaths,
		Classes:       opts.Classes,
		NSweeps:       nsweeps,
		ProgressEvery: progress,
		Logger:        opts.Logger,
	}

	ranges := Partition(n, opts.Workers+1)
	partials := make([]Index, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, r := range ranges {
		g.Go(func() error {
			part, err := x.ExtractRange(gctx, r.Indices())
			if err != nil {
				return fmt.Errorf("slice %d [%d, %d): %w", i, r.Start, r.End, err)
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(family.Classes, partials, log)
	if err := jsonfile.Write(fsys, indexPath, merged); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	log.Info("dataset length", zap.Int("frames", ds.Len()))
	logCounts(log, merged)

	return &BuildResult{
		RunID:      runID,
		Family:     family.Name,
		DataRoot:   opts.DataRoot,
		DBPath:     dbPath,
		IndexPath:  indexPath,
		Workers:    opts.Workers,
		DatasetLen: ds.Len(),
		Frames:     n,
		Index:      merged,
		Started:    started,
		Duration:   clock.Since(started),
	}, nil
}

func logCounts(log *zap.Logger, idx Index) {
	for _, class := range idx.Classes() {
		log.Info("loaded database infos", zap.String("class", class), zap.Int("count", len(idx[class])))
	}
}

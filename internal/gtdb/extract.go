package gtdb

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/banshee-data/gtdb/internal/blobstore"
	"github.com/banshee-data/gtdb/internal/dataset"
	"github.com/banshee-data/gtdb/internal/logging"
	"github.com/banshee-data/gtdb/internal/pointcloud"
	"github.com/banshee-data/gtdb/internal/security"
)

// Extractor extracts ground-truth objects from dataset frames. It holds no
// mutable state, so one Extractor may serve several concurrent ranges.
type Extractor struct {
	Dataset  dataset.Accessor
	Sampling SamplingPolicy

	// Sink receives the point blobs. A nil Sink is a summary pass: nothing
	// is written and entries carry no path.
	Sink blobstore.Sink
	// DBName is the base name of the database directory; relative entry
	// paths start with it.
	DBName        string
	AbsolutePaths bool

	// Classes restricts extraction to the listed classes when non-empty.
	Classes []string
	NSweeps int

	// ProgressEvery logs progress every n frames when positive.
	ProgressEvery int
	// Logger is the root logger. Progress goes to its diag stream and
	// skipped frames to its ops stream.
	Logger *zap.Logger
}

// ExtractRange extracts every object of the frames in indices and returns
// them as a partial index. Group ids count from zero for each call.
//
// A failing blob write is logged and ends the frame early; entries already
// produced for the frame are kept. Dataset errors and cancellation end the
// range with an error.
func (x *Extractor) ExtractRange(ctx context.Context, indices []int) (Index, error) {
	log := logging.Diag(x.Logger)
	out := make(Index)
	var counter int64

	for n, index := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sd, err := x.Dataset.SensorData(ctx, index)
		if err != nil {
			return nil, fmt.Errorf("load frame %d: %w", index, err)
		}
		if err := x.extractFrame(ctx, index, sd, &counter, out); err != nil {
			return nil, fmt.Errorf("extract frame %d: %w", index, err)
		}
		if x.ProgressEvery > 0 && (n+1)%x.ProgressEvery == 0 {
			log.Info("extraction progress",
				zap.Int("frames_done", n+1),
				zap.Int("frames_total", len(indices)),
				zap.Int("entries", out.Len()))
		}
	}
	return out, nil
}

func (x *Extractor) extractFrame(ctx context.Context, index int, sd *dataset.SensorData, counter *int64, out Index) error {
	annos := sd.Lidar.Annotations
	if err := annos.Validate(); err != nil {
		return err
	}

	frameID := sd.Metadata.ImageIdx
	if frameID == "" {
		frameID = strconv.Itoa(index)
	}
	points := sd.Lidar.Points
	if x.NSweeps > 1 {
		points = sd.Lidar.Combined
	}

	sampling := x.Sampling
	if sampling == nil {
		sampling = KeepAll{}
	}
	var kept []int
	for i, name := range annos.Names {
		if sampling.Keep(index, name) {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	boxes := make([]pointcloud.Box, len(kept))
	for j, i := range kept {
		b, err := pointcloud.BoxFromRow(annos.Boxes[i])
		if err != nil {
			return fmt.Errorf("%w: object %d: %v", dataset.ErrMalformedFrame, i, err)
		}
		boxes[j] = b
	}
	members := pointcloud.PointsInBoxes(points, boxes)
	counts := members.Counts()

	groups := make(map[int64]int64)
	for j, i := range kept {
		name := annos.Names[i]
		if len(x.Classes) > 0 && !slices.Contains(x.Classes, name) {
			continue
		}

		e := Entry{
			Name:          name,
			ImageIdx:      frameID,
			GTIdx:         i,
			Box3DLidar:    slices.Clone(annos.Boxes[i]),
			NumPointsInGT: counts[j],
		}

		if x.Sink != nil {
			file := fmt.Sprintf("%s_%s_%d.bin", security.FilenameStem(frameID), name, i)
			rel := path.Join(name, file)
			if err := x.writeBlob(ctx, name, rel, points.Select(members[j]), boxes[j]); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Ops(x.Logger).Warn("blob write failed, skipping rest of frame",
					zap.Int("index", index),
					zap.String("image_idx", frameID),
					zap.String("blob", rel),
					zap.Error(err))
				return nil
			}
			if x.AbsolutePaths {
				e.Path = x.Sink.Location(rel)
			} else {
				e.Path = path.Join(x.DBName, rel)
			}
		}

		local := int64(i)
		if annos.GroupIDs != nil {
			local = annos.GroupIDs[i]
		}
		gid, ok := groups[local]
		if !ok {
			gid = *counter
			groups[local] = gid
			*counter++
		}
		e.GroupID = gid

		if annos.Difficulty != nil {
			e.Difficulty = annos.Difficulty[i]
		}
		if annos.Score != nil {
			score := annos.Score[i]
			e.Score = &score
		}
		out.add(e)
	}
	return nil
}

func (x *Extractor) writeBlob(ctx context.Context, class, name string, pts pointcloud.Cloud, box pointcloud.Box) error {
	if err := x.Sink.MkdirAll(ctx, class); err != nil {
		return err
	}
	pts.Recenter(box.Center)
	return x.Sink.Put(ctx, name, pointcloud.EncodeBlob(pts))
}

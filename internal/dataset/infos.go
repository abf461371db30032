package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/jsonfile"
	"github.com/banshee-data/gtdb/internal/pointcloud"
)

// FrameInfo is one record of an infos file.
type FrameInfo struct {
	Token      string      `json:"token,omitempty"`
	ImageIdx   string      `json:"image_idx,omitempty"`
	LidarPath  string      `json:"lidar_path"`
	Sweeps     []SweepInfo `json:"sweeps,omitempty"`
	GTBoxes    [][]float64 `json:"gt_boxes"`
	GTNames    []string    `json:"gt_names"`
	GroupIDs   []int64     `json:"group_ids,omitempty"`
	Difficulty []int       `json:"difficulty,omitempty"`
	Score      []float64   `json:"score,omitempty"`
}

// SweepInfo is a non-key sweep aggregated into the combined cloud.
type SweepInfo struct {
	LidarPath string  `json:"lidar_path"`
	TimeLag   float64 `json:"time_lag"`
}

// Options configures an InfoDataset.
type Options struct {
	// InfoPath is the infos file (.json, .json.zst or .json.lz4).
	InfoPath string
	// RootPath resolves relative lidar paths.
	RootPath string
	// NSweeps is the number of sweeps aggregated into the combined cloud.
	NSweeps int
	// NumFeatures is the channel count of the .bin point files.
	NumFeatures int
	// FS defaults to the OS filesystem.
	FS fsutil.FileSystem
}

// InfoDataset serves frames described by an infos file, reading points from
// flat float32 .bin files. It holds no mutable state after Open.
type InfoDataset struct {
	frames      []FrameInfo
	root        string
	nsweeps     int
	numFeatures int
	fs          fsutil.FileSystem
}

// Open loads and validates the infos file.
func Open(opts Options) (*InfoDataset, error) {
	if opts.InfoPath == "" {
		return nil, fmt.Errorf("dataset info path is required")
	}
	if opts.NSweeps < 1 {
		opts.NSweeps = 1
	}
	if opts.NumFeatures < pointcloud.MinChannels {
		return nil, fmt.Errorf("num features must be at least %d, got %d", pointcloud.MinChannels, opts.NumFeatures)
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}

	var frames []FrameInfo
	if err := jsonfile.Read(opts.FS, opts.InfoPath, &frames); err != nil {
		return nil, err
	}
	for i := range frames {
		if err := frames[i].annotations().Validate(); err != nil {
			return nil, fmt.Errorf("infos frame %d: %w", i, err)
		}
	}

	return &InfoDataset{
		frames:      frames,
		root:        opts.RootPath,
		nsweeps:     opts.NSweeps,
		numFeatures: opts.NumFeatures,
		fs:          opts.FS,
	}, nil
}

// Len returns the number of frames.
func (d *InfoDataset) Len() int {
	return len(d.frames)
}

// SensorData loads the points of frame index.
func (d *InfoDataset) SensorData(ctx context.Context, index int) (*SensorData, error) {
	if err := checkIndex(index, len(d.frames)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := d.frames[index]

	points, err := pointcloud.ReadBin(d.fs, d.resolve(info.LidarPath), d.numFeatures)
	if err != nil {
		return nil, err
	}

	sd := &SensorData{
		Metadata: Metadata{ImageIdx: info.ImageIdx, Token: info.Token},
		Lidar: Lidar{
			Points:      points,
			Annotations: info.annotations(),
		},
	}
	if sd.Metadata.ImageIdx == "" {
		sd.Metadata.ImageIdx = info.Token
	}

	if d.nsweeps > 1 {
		combined, err := d.combine(points, info.Sweeps)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", index, err)
		}
		sd.Lidar.Combined = combined
	}
	return sd, nil
}

// combine stacks the key frame (time lag 0) with up to nsweeps-1 sweeps and
// appends the time lag as an extra channel.
func (d *InfoDataset) combine(key pointcloud.Cloud, sweeps []SweepInfo) (pointcloud.Cloud, error) {
	clouds := []pointcloud.Cloud{key.WithChannel(0)}
	for i, sweep := range sweeps {
		if i >= d.nsweeps-1 {
			break
		}
		c, err := pointcloud.ReadBin(d.fs, d.resolve(sweep.LidarPath), d.numFeatures)
		if err != nil {
			return pointcloud.Cloud{}, err
		}
		clouds = append(clouds, c.WithChannel(float32(sweep.TimeLag)))
	}
	return pointcloud.Concat(clouds...)
}

func (d *InfoDataset) resolve(p string) string {
	if filepath.IsAbs(p) || d.root == "" {
		return p
	}
	return filepath.Join(d.root, p)
}

func (f FrameInfo) annotations() Annotations {
	return Annotations{
		Boxes:      f.GTBoxes,
		Names:      f.GTNames,
		GroupIDs:   f.GroupIDs,
		Difficulty: f.Difficulty,
		Score:      f.Score,
	}
}

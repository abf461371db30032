// Package dataset defines the labelled point-cloud dataset contract consumed
// by the ground-truth database builder, with a file-backed implementation
// driven by an infos file and an in-memory one for tests and tooling.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/gtdb/internal/pointcloud"
)

var (
	// ErrIndexOutOfRange is returned for indices outside [0, Len()).
	ErrIndexOutOfRange = errors.New("dataset index out of range")
	// ErrMalformedFrame is returned when a frame's annotations are inconsistent.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Accessor gives indexed access to the frames of a dataset. Implementations
// must be safe for concurrent use by several extraction workers.
type Accessor interface {
	// Len returns the number of frames.
	Len() int
	// SensorData loads frame index.
	SensorData(ctx context.Context, index int) (*SensorData, error)
}

// SensorData is one frame: metadata plus the lidar points and annotations.
type SensorData struct {
	Metadata Metadata
	Lidar    Lidar
}

// Metadata describes where a frame came from. ImageIdx is empty when the
// dataset has no frame identifier of its own.
type Metadata struct {
	ImageIdx string
	Token    string
}

// Lidar holds the point arrays of a frame. Combined is only populated for
// multi-sweep datasets.
type Lidar struct {
	Points      pointcloud.Cloud
	Combined    pointcloud.Cloud
	Annotations Annotations
}

// Annotations are the labelled boxes of a frame. Optional columns are nil
// when the dataset does not provide them.
type Annotations struct {
	Boxes      [][]float64
	Names      []string
	GroupIDs   []int64
	Difficulty []int
	Score      []float64
}

// Len returns the number of annotated objects.
func (a Annotations) Len() int {
	return len(a.Boxes)
}

// Validate checks that every column has one value per box.
func (a Annotations) Validate() error {
	n := len(a.Boxes)
	if len(a.Names) != n {
		return fmt.Errorf("%w: %d boxes but %d names", ErrMalformedFrame, n, len(a.Names))
	}
	if a.GroupIDs != nil && len(a.GroupIDs) != n {
		return fmt.Errorf("%w: %d boxes but %d group ids", ErrMalformedFrame, n, len(a.GroupIDs))
	}
	if a.Difficulty != nil && len(a.Difficulty) != n {
		return fmt.Errorf("%w: %d boxes but %d difficulty values", ErrMalformedFrame, n, len(a.Difficulty))
	}
	if a.Score != nil && len(a.Score) != n {
		return fmt.Errorf("%w: %d boxes but %d scores", ErrMalformedFrame, n, len(a.Score))
	}
	for i, row := range a.Boxes {
		if len(row) < pointcloud.BoxDims {
			return fmt.Errorf("%w: box %d has %d values, need %d", ErrMalformedFrame, i, len(row), pointcloud.BoxDims)
		}
	}
	return nil
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, n)
	}
	return nil
}

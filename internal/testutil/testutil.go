// Package testutil provides shared test fixtures: synthetic lidar frames and
// the infos files that describe them on disk.
package testutil

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gtdb/internal/dataset"
	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/jsonfile"
	"github.com/banshee-data/gtdb/internal/pointcloud"
)

// Channels is the point width of the clouds built by Frame.
const Channels = 4

// Spacing is the distance along x between consecutive objects of a Frame.
const Spacing = 10.0

// Frame lays the named objects out along x, Spacing metres apart, with two
// points inside every 2m box and one point outside all of them. Boxes carry
// velocity (0.5, -0.5) and zero yaw.
func Frame(imageIdx string, names []string, groupIDs []int64) dataset.SensorData {
	boxes := make([][]float64, len(names))
	var data []float32
	for i := range names {
		x := float64(i) * Spacing
		boxes[i] = []float64{x, 0, 0, 2, 2, 2, 0.5, -0.5, 0}
		data = append(data, float32(x), 0, 0, 1)
		data = append(data, float32(x)+0.5, 0.5, 0.5, 2)
	}
	data = append(data, 1000, 1000, 1000, 0)
	return dataset.SensorData{
		Metadata: dataset.Metadata{ImageIdx: imageIdx},
		Lidar: dataset.Lidar{
			Points: pointcloud.Cloud{Data: data, Channels: Channels},
			Annotations: dataset.Annotations{
				Boxes:    boxes,
				Names:    names,
				GroupIDs: groupIDs,
			},
		},
	}
}

// Frames returns n frames carrying the same objects.
func Frames(n int, names ...string) []dataset.SensorData {
	frames := make([]dataset.SensorData, n)
	for i := range frames {
		frames[i] = Frame("", names, nil)
	}
	return frames
}

// WriteInfos stores the frames under root as samples/<i>.bin point files and
// an infos file named infoName, and returns the infos path. Frames without an
// ImageIdx get the token "tok-<i>".
func WriteInfos(fsys fsutil.FileSystem, root, infoName string, frames []dataset.SensorData) (string, error) {
	infos := make([]dataset.FrameInfo, len(frames))
	for i, f := range frames {
		rel := filepath.Join("samples", fmt.Sprintf("%d.bin", i))
		if err := fsutil.WriteFileAtomic(fsys, filepath.Join(root, rel), pointcloud.EncodeBlob(f.Lidar.Points), 0o644); err != nil {
			return "", fmt.Errorf("write frame %d: %w", i, err)
		}
		infos[i] = dataset.FrameInfo{
			ImageIdx:   f.Metadata.ImageIdx,
			LidarPath:  rel,
			GTBoxes:    f.Lidar.Annotations.Boxes,
			GTNames:    f.Lidar.Annotations.Names,
			GroupIDs:   f.Lidar.Annotations.GroupIDs,
			Difficulty: f.Lidar.Annotations.Difficulty,
			Score:      f.Lidar.Annotations.Score,
		}
		if infos[i].ImageIdx == "" {
			infos[i].Token = fmt.Sprintf("tok-%d", i)
		}
	}
	infoPath := filepath.Join(root, infoName)
	if err := jsonfile.Write(fsys, infoPath, infos); err != nil {
		return "", err
	}
	return infoPath, nil
}

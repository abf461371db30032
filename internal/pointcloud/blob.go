package pointcloud

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/gtdb/internal/fsutil"
)

// Float32Size is the size in bytes of one channel value in a blob.
const Float32Size = 4

// maxBlobPoints bounds decoding of untrusted blobs.
const maxBlobPoints = 1 << 26

// EncodeBlob encodes a cloud as a flat little-endian float32 array, the same
// layout numpy's tofile produces for a float32 array.
func EncodeBlob(c Cloud) []byte {
	blob := make([]byte, len(c.Data)*Float32Size)
	for i, v := range c.Data {
		binary.LittleEndian.PutUint32(blob[i*Float32Size:], math.Float32bits(v))
	}
	return blob
}

// DecodeBlob decodes a flat float32 blob with the given channel count.
func DecodeBlob(blob []byte, channels int) (Cloud, error) {
	if channels < MinChannels {
		return Cloud{}, fmt.Errorf("point cloud needs at least %d channels, got %d", MinChannels, channels)
	}
	stride := channels * Float32Size
	if len(blob)%stride != 0 {
		return Cloud{}, fmt.Errorf("blob size %d is not a multiple of %d-channel points", len(blob), channels)
	}
	if len(blob)/stride > maxBlobPoints {
		return Cloud{}, fmt.Errorf("blob holds %d points, limit is %d", len(blob)/stride, maxBlobPoints)
	}

	data := make([]float32, len(blob)/Float32Size)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*Float32Size:]))
	}
	return Cloud{Data: data, Channels: channels}, nil
}

// ReadBin loads a .bin point file from fsys.
func ReadBin(fsys fsutil.FileSystem, path string, channels int) (Cloud, error) {
	blob, err := fsys.ReadFile(path)
	if err != nil {
		return Cloud{}, fmt.Errorf("failed to read points %s: %w", path, err)
	}
	c, err := DecodeBlob(blob, channels)
	if err != nil {
		return Cloud{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

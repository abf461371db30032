package pointcloud

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinChannels is the minimum channel count of a cloud (x, y, z).
const MinChannels = 3

// Cloud is a row-major M×C float32 point array.
type Cloud struct {
	Data     []float32
	Channels int
}

// NewCloud wraps data as a cloud with the given channel count.
func NewCloud(data []float32, channels int) (Cloud, error) {
	if channels < MinChannels {
		return Cloud{}, fmt.Errorf("point cloud needs at least %d channels, got %d", MinChannels, channels)
	}
	if len(data)%channels != 0 {
		return Cloud{}, fmt.Errorf("point data length %d is not a multiple of %d channels", len(data), channels)
	}
	return Cloud{Data: data, Channels: channels}, nil
}

// Len returns the number of points.
func (c Cloud) Len() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Data) / c.Channels
}

// At returns the channels of point i. The slice aliases the cloud.
func (c Cloud) At(i int) []float32 {
	return c.Data[i*c.Channels : (i+1)*c.Channels]
}

// XYZ returns the position of point i.
func (c Cloud) XYZ(i int) r3.Vec {
	off := i * c.Channels
	return r3.Vec{X: float64(c.Data[off]), Y: float64(c.Data[off+1]), Z: float64(c.Data[off+2])}
}

// Select copies the listed points into a new cloud.
func (c Cloud) Select(indices []int) Cloud {
	out := make([]float32, 0, len(indices)*c.Channels)
	for _, i := range indices {
		out = append(out, c.At(i)...)
	}
	return Cloud{Data: out, Channels: c.Channels}
}

// Recenter subtracts center from the xyz channels of every point in place.
func (c Cloud) Recenter(center r3.Vec) {
	cx, cy, cz := float32(center.X), float32(center.Y), float32(center.Z)
	for off := 0; off+2 < len(c.Data); off += c.Channels {
		c.Data[off] -= cx
		c.Data[off+1] -= cy
		c.Data[off+2] -= cz
	}
}

// WithChannel returns a copy of c with value appended as an extra channel.
func (c Cloud) WithChannel(value float32) Cloud {
	n := c.Len()
	out := make([]float32, 0, n*(c.Channels+1))
	for i := 0; i < n; i++ {
		out = append(out, c.At(i)...)
		out = append(out, value)
	}
	return Cloud{Data: out, Channels: c.Channels + 1}
}

// Concat stacks clouds with equal channel counts.
func Concat(clouds ...Cloud) (Cloud, error) {
	if len(clouds) == 0 {
		return Cloud{}, nil
	}
	channels := clouds[0].Channels
	total := 0
	for i, c := range clouds {
		if c.Channels != channels {
			return Cloud{}, fmt.Errorf("cannot stack cloud %d with %d channels onto %d channels", i, c.Channels, channels)
		}
		total += len(c.Data)
	}
	out := make([]float32, 0, total)
	for _, c := range clouds {
		out = append(out, c.Data...)
	}
	return Cloud{Data: out, Channels: channels}, nil
}

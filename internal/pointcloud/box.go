package pointcloud

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoxDims is the minimum width of an annotation row: centre, size and yaw.
const BoxDims = 7

// Box is a 7-DOF (7 Degrees of Freedom) oriented 3D bounding box.
//
//   - Center: geometric centre of the box (metres, sensor frame)
//   - Length: extent along the heading direction
//   - Width:  extent perpendicular to heading in the X-Y plane
//   - Height: extent along Z
//   - Heading: yaw around +Z (radians, counter-clockwise from +X)
type Box struct {
	Center  r3.Vec
	Length  float64
	Width   float64
	Height  float64
	Heading float64
}

// BoxFromRow reads an annotation row [x, y, z, dx, dy, dz, (vx, vy,) yaw].
// The yaw is always the last value; columns between the size and the yaw,
// such as velocity, do not affect the geometry.
func BoxFromRow(row []float64) (Box, error) {
	if len(row) < BoxDims {
		return Box{}, fmt.Errorf("box row has %d values, need at least %d", len(row), BoxDims)
	}
	if row[3] < 0 || row[4] < 0 || row[5] < 0 {
		return Box{}, fmt.Errorf("box has negative extent (%g, %g, %g)", row[3], row[4], row[5])
	}
	return Box{
		Center:  r3.Vec{X: row[0], Y: row[1], Z: row[2]},
		Length:  row[3],
		Width:   row[4],
		Height:  row[5],
		Heading: NormalizeHeading(row[len(row)-1]),
	}, nil
}

// FootprintBounds returns the axis-aligned X-Y bounds of the rotated box.
func (b Box) FootprintBounds() (lo, hi [2]float64) {
	c, s := math.Abs(math.Cos(b.Heading)), math.Abs(math.Sin(b.Heading))
	ex := c*b.Length/2 + s*b.Width/2
	ey := s*b.Length/2 + c*b.Width/2
	lo = [2]float64{b.Center.X - ex, b.Center.Y - ey}
	hi = [2]float64{b.Center.X + ex, b.Center.Y + ey}
	return lo, hi
}

// boxFrame caches the inverse heading rotation of a box.
type boxFrame struct {
	center  r3.Vec
	inverse r3.Rotation
	half    r3.Vec
}

var zAxis = r3.Vec{Z: 1}

func newBoxFrame(b Box) boxFrame {
	return boxFrame{
		center:  b.Center,
		inverse: r3.NewRotation(-b.Heading, zAxis),
		half:    r3.Vec{X: b.Length / 2, Y: b.Width / 2, Z: b.Height / 2},
	}
}

// contains reports whether p lies inside the box. Faces are inclusive.
func (f boxFrame) contains(p r3.Vec) bool {
	local := f.inverse.Rotate(r3.Sub(p, f.center))
	return math.Abs(local.X) <= f.half.X &&
		math.Abs(local.Y) <= f.half.Y &&
		math.Abs(local.Z) <= f.half.Z
}

// NormalizeHeading wraps an angle to [-π, π].
func NormalizeHeading(h float64) float64 {
	for h > math.Pi {
		h -= 2 * math.Pi
	}
	for h < -math.Pi {
		h += 2 * math.Pi
	}
	return h
}

package pointcloud

import (
	"github.com/tidwall/rtree"
)

// Membership lists, per box, the indices of the points inside it in
// increasing order. It is the sparse form of the M×N containment matrix.
type Membership [][]int

// Counts returns the number of points inside each box.
func (m Membership) Counts() []int {
	counts := make([]int, len(m))
	for j, idx := range m {
		counts[j] = len(idx)
	}
	return counts
}

// PointsInBoxes computes the containment of every point in every box in a
// single pass. Box footprints are indexed in an R-tree so each point is only
// tested exactly against the boxes whose X-Y bounds it falls in.
func PointsInBoxes(cloud Cloud, boxes []Box) Membership {
	members := make(Membership, len(boxes))
	if len(boxes) == 0 || cloud.Len() == 0 {
		return members
	}

	var tr rtree.RTreeG[int]
	frames := make([]boxFrame, len(boxes))
	for j, b := range boxes {
		frames[j] = newBoxFrame(b)
		lo, hi := b.FootprintBounds()
		tr.Insert(lo, hi, j)
	}

	n := cloud.Len()
	for i := 0; i < n; i++ {
		p := cloud.XYZ(i)
		pt := [2]float64{p.X, p.Y}
		tr.Search(pt, pt, func(_, _ [2]float64, j int) bool {
			if frames[j].contains(p) {
				members[j] = append(members[j], i)
			}
			return true
		})
	}
	return members
}

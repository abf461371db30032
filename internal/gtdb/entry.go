package gtdb

import (
	"slices"
)

// Entry is one ground-truth object extracted from one frame.
type Entry struct {
	Name string `json:"name"`
	// Path is the blob location; empty for summary passes.
	Path          string    `json:"path,omitempty"`
	ImageIdx      string    `json:"image_idx"`
	GTIdx         int       `json:"gt_idx"`
	Box3DLidar    []float64 `json:"box3d_lidar"`
	NumPointsInGT int       `json:"num_points_in_gt"`
	Difficulty    int       `json:"difficulty"`
	GroupID       int64     `json:"group_id"`
	Score         *float64  `json:"score,omitempty"`
}

// Index maps class names to their entries in extraction order.
type Index map[string][]Entry

// Len returns the total number of entries.
func (idx Index) Len() int {
	n := 0
	for _, entries := range idx {
		n += len(entries)
	}
	return n
}

// Classes returns the class names in sorted order.
func (idx Index) Classes() []string {
	classes := make([]string, 0, len(idx))
	for name := range idx {
		classes = append(classes, name)
	}
	slices.Sort(classes)
	return classes
}

// Counts returns the number of entries per class.
func (idx Index) Counts() map[string]int {
	counts := make(map[string]int, len(idx))
	for name, entries := range idx {
		counts[name] = len(entries)
	}
	return counts
}

// GroupIDs returns the distinct group ids in ascending order.
func (idx Index) GroupIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, entries := range idx {
		for _, e := range entries {
			seen[e.GroupID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FilterByMinPoints returns a copy of idx without entries that have fewer
// points than their class minimum. Classes without a minimum are kept whole;
// classes left empty are removed.
func (idx Index) FilterByMinPoints(minPoints map[string]int) Index {
	return idx.filter(func(e Entry) bool {
		threshold, ok := minPoints[e.Name]
		return !ok || e.NumPointsInGT >= threshold
	})
}

// FilterByDifficulty returns a copy of idx without entries whose difficulty
// is listed in drop.
func (idx Index) FilterByDifficulty(drop []int) Index {
	return idx.filter(func(e Entry) bool {
		return !slices.Contains(drop, e.Difficulty)
	})
}

func (idx Index) filter(keep func(Entry) bool) Index {
	out := make(Index, len(idx))
	for name, entries := range idx {
		var kept []Entry
		for _, e := range entries {
			if keep(e) {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			out[name] = kept
		}
	}
	return out
}

func (idx Index) add(e Entry) {
	idx[e.Name] = append(idx[e.Name], e)
}

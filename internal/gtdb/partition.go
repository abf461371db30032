package gtdb

// Range is the half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Indices expands r.
func (r Range) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

// Partition splits [0, n) into parts contiguous slices of n/parts indices.
// The last slice also takes the remainder, so the slices always cover [0, n)
// exactly once. Slices may be empty when n < parts.
func Partition(n, parts int) []Range {
	if parts < 1 {
		parts = 1
	}
	if n < 0 {
		n = 0
	}
	size := n / parts
	out := make([]Range, parts)
	for i := range out {
		out[i] = Range{Start: i * size, End: (i + 1) * size}
	}
	out[parts-1].End = n
	return out
}

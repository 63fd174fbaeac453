package gzidx

import "sort"

// Index is the ordered sequence of access points built over one gzip
// member (spec.md §3, C2). The zero value is an empty, ready-to-append
// index. Append-only during build; read-only once handed to a Reader.
type Index struct {
	points []point
}

// newIndex preallocates room for 8 points, growing through append
// thereafter; the spec recommends an initial capacity of 8 slots to
// amortize append cost without over-allocating for small streams.
func newIndex() *Index {
	return &Index{points: make([]point, 0, 8)}
}

func (idx *Index) append(p point) {
	idx.points = append(idx.points, p)
}

// trim shrinks the backing array to exactly the filled length, as the
// spec calls for once a build completes.
func (idx *Index) trim() {
	if len(idx.points) == cap(idx.points) {
		return
	}
	trimmed := make([]point, len(idx.points))
	copy(trimmed, idx.points)
	idx.points = trimmed
}

// Len reports the number of access points in the index.
func (idx *Index) Len() int { return len(idx.points) }

// PointInfo is the exported projection of an access point's coordinates,
// for tools that want to report on an index without linking against the
// decompression path (spec.md §6's `inspect` supplement).
type PointInfo struct {
	Out  int64
	In   int64
	Bits int32
}

// PointInfos returns the out/in/bits coordinates of every access point,
// in index order.
func (idx *Index) PointInfos() []PointInfo {
	infos := make([]PointInfo, len(idx.points))
	for i, p := range idx.points {
		infos[i] = PointInfo{Out: p.out, In: p.in, Bits: p.bits}
	}
	return infos
}

// lookup returns the access point with the largest out <= target, and
// true if one exists. The index is sorted strictly by out (spec.md §4.2),
// so this is a binary search.
func (idx *Index) lookup(target int64) (point, bool) {
	if len(idx.points) == 0 || target < idx.points[0].out {
		return point{}, false
	}
	i := sort.Search(len(idx.points), func(i int) bool {
		return idx.points[i].out > target
	})
	return idx.points[i-1], true
}

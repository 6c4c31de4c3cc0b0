package spatial

import (
	"math"
	"slices"

	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/dhconnelly/rtreego"
)

// rectEpsilon is the relative size given to zero-length sides. rtreego
// rejects rectangles whose sides are not strictly positive.
const rectEpsilon = 1e-9

// rtreeEntry wraps an indexed extent for R-tree storage.
type rtreeEntry struct {
	ext extent.Extent
	id  int
}

// Bounds implements rtreego.Spatial.
func (e *rtreeEntry) Bounds() rtreego.Rect {
	return rectFor(e.ext, 0)
}

// rectFor converts an extent to an R-tree rectangle grown by pad on each side.
// Point and line extents get a tiny positive width.
func rectFor(e extent.Extent, pad float64) rtreego.Rect {
	eps := rectEpsilon * max(1, math.Abs(e.MinX), math.Abs(e.MinY), math.Abs(e.MaxX), math.Abs(e.MaxY))
	lengths := []float64{
		max(e.Width()+2*pad, eps),
		max(e.Height()+2*pad, eps),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{e.MinX - pad, e.MinY - pad}, lengths)
	return rect
}

// RTree is an Index backed by an R-tree. Query cost is logarithmic in the
// number of entries; Renumber is linear.
type RTree struct {
	tree *rtreego.Rtree
	byID map[int]*rtreeEntry
}

// NewRTree creates an empty R-tree index.
func NewRTree() *RTree {
	return &RTree{
		// 2D, min=25 children, max=50 children
		tree: rtreego.NewTree(2, 25, 50),
		byID: make(map[int]*rtreeEntry),
	}
}

// Len returns the number of entries.
func (t *RTree) Len() int {
	return t.tree.Size()
}

// Insert adds id with extent e. Empty extents are not indexed.
func (t *RTree) Insert(e extent.Extent, id int) {
	if e.IsEmpty() {
		return
	}
	if old, ok := t.byID[id]; ok {
		t.delete(old)
	}
	entry := &rtreeEntry{ext: e, id: id}
	t.byID[id] = entry
	t.tree.Insert(entry)
}

// Remove deletes id if it was inserted with exactly extent e.
func (t *RTree) Remove(e extent.Extent, id int) bool {
	entry, ok := t.byID[id]
	if !ok || !sameXY(entry.ext, e) {
		return false
	}
	t.delete(entry)
	return true
}

func (t *RTree) delete(entry *rtreeEntry) {
	t.tree.DeleteWithComparator(entry, func(a, b rtreego.Spatial) bool {
		return a == b
	})
	delete(t.byID, entry.id)
}

// Query returns the ids whose extents intersect e, ascending.
//
// rtreego treats touching rectangles as disjoint, so the search rectangle is
// padded and every candidate is checked against its stored extent.
func (t *RTree) Query(e extent.Extent) []int {
	if e.IsEmpty() {
		return nil
	}
	pad := rectEpsilon * max(1, math.Abs(e.MinX), math.Abs(e.MinY), math.Abs(e.MaxX), math.Abs(e.MaxY))
	candidates := t.tree.SearchIntersect(rectFor(e, pad))

	var ids []int
	for _, c := range candidates {
		entry := c.(*rtreeEntry)
		if entry.ext.Intersects(e) {
			ids = append(ids, entry.id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Renumber drops the entry carrying removed and shifts larger ids down by one.
// Entries are updated in place, so the tree itself is not rebuilt.
func (t *RTree) Renumber(removed int) {
	if entry, ok := t.byID[removed]; ok {
		t.delete(entry)
	}
	byID := make(map[int]*rtreeEntry, len(t.byID))
	for id, entry := range t.byID {
		if id > removed {
			entry.id--
		}
		byID[entry.id] = entry
	}
	t.byID = byID
}

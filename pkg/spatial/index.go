// Package spatial indexes shape extents for range queries.
//
// Ids are the positions of shapes in their owning feature set. An index never
// renumbers on its own: when the owner compacts its shape list it calls
// Renumber so ids keep matching positions.
package spatial

import (
	"fmt"

	"github.com/beetlebugorg/shp/pkg/extent"
)

// Index maps shape extents to shape ids.
type Index interface {
	// Insert adds id with extent e.
	Insert(e extent.Extent, id int)

	// Remove deletes id. The extent must equal the one given to Insert
	// component-wise; otherwise nothing is removed and Remove returns false.
	Remove(e extent.Extent, id int) bool

	// Query returns the ids whose extents intersect e, in ascending order.
	Query(e extent.Extent) []int

	// Renumber drops any entry still carrying removed and shifts every larger
	// id down by one.
	Renumber(removed int)

	// Len returns the number of indexed entries.
	Len() int
}

// Backend names an Index implementation.
type Backend string

const (
	BackendQuadtree Backend = "quadtree"
	BackendRTree    Backend = "rtree"
)

// New creates an empty index of the given backend. bounds is the expected
// coverage; the quadtree uses it to lay out its nodes.
func New(b Backend, bounds extent.Extent) (Index, error) {
	switch b {
	case BackendQuadtree, "":
		return NewQuadtree(bounds, DefaultQuadtreeOptions()), nil
	case BackendRTree:
		return NewRTree(), nil
	default:
		return nil, fmt.Errorf("unknown spatial index backend %q", b)
	}
}

// sameXY reports whether two extents have identical planar bounds.
func sameXY(a, b extent.Extent) bool {
	return a.MinX == b.MinX && a.MinY == b.MinY && a.MaxX == b.MaxX && a.MaxY == b.MaxY
}

package spatial

import (
	"slices"

	"github.com/beetlebugorg/shp/pkg/extent"
)

// QuadtreeOptions controls node splitting.
type QuadtreeOptions struct {
	// MaxItems is the number of items a leaf holds before it splits.
	MaxItems int

	// MaxDepth stops splitting; leaves at this depth grow without bound.
	MaxDepth int
}

// DefaultQuadtreeOptions returns settings suited to typical shapefiles.
func DefaultQuadtreeOptions() QuadtreeOptions {
	return QuadtreeOptions{
		MaxItems: 16,
		MaxDepth: 12,
	}
}

type quadItem struct {
	ext extent.Extent
	id  int
}

type quadNode struct {
	bounds   extent.Extent
	depth    int
	items    []quadItem
	children *[4]*quadNode
}

// Quadtree is a region quadtree over shape extents.
//
// Each item lives in the deepest node whose quadrant fully contains it, so
// large shapes stay near the root. Items outside the root bounds are kept at
// the root and are still found by Query.
type Quadtree struct {
	root *quadNode
	opts QuadtreeOptions
	n    int
}

// NewQuadtree creates an empty tree covering bounds.
func NewQuadtree(bounds extent.Extent, opts QuadtreeOptions) *Quadtree {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultQuadtreeOptions().MaxItems
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultQuadtreeOptions().MaxDepth
	}
	return &Quadtree{
		root: &quadNode{bounds: bounds},
		opts: opts,
	}
}

// Bounds returns the coverage the tree was created with.
func (q *Quadtree) Bounds() extent.Extent {
	return q.root.bounds
}

// Len returns the number of items.
func (q *Quadtree) Len() int {
	return q.n
}

// Insert adds id with extent e. Empty extents are not indexed.
func (q *Quadtree) Insert(e extent.Extent, id int) {
	if e.IsEmpty() {
		return
	}
	q.root.insert(quadItem{ext: e, id: id}, q.opts)
	q.n++
}

func (n *quadNode) insert(it quadItem, opts QuadtreeOptions) {
	if n.children != nil {
		if c := n.childFor(it.ext); c != nil {
			c.insert(it, opts)
			return
		}
		n.items = append(n.items, it)
		return
	}

	n.items = append(n.items, it)
	if len(n.items) > opts.MaxItems && n.depth < opts.MaxDepth && !n.bounds.IsEmpty() {
		n.split(opts)
	}
}

// childFor returns the child quadrant that fully contains e, or nil.
func (n *quadNode) childFor(e extent.Extent) *quadNode {
	if n.children == nil || e.IsEmpty() {
		return nil
	}
	for _, c := range n.children {
		if c.bounds.Contains(e) {
			return c
		}
	}
	return nil
}

func (n *quadNode) split(opts QuadtreeOptions) {
	cx, cy := n.bounds.Center()
	b := n.bounds
	quads := [4]extent.Extent{
		extent.NewXY(b.MinX, b.MinY, cx, cy),
		extent.NewXY(cx, b.MinY, b.MaxX, cy),
		extent.NewXY(b.MinX, cy, cx, b.MaxY),
		extent.NewXY(cx, cy, b.MaxX, b.MaxY),
	}
	var children [4]*quadNode
	for i, qb := range quads {
		children[i] = &quadNode{bounds: qb, depth: n.depth + 1}
	}
	n.children = &children

	items := n.items
	n.items = nil
	for _, it := range items {
		if c := n.childFor(it.ext); c != nil {
			c.insert(it, opts)
		} else {
			n.items = append(n.items, it)
		}
	}
}

// Remove deletes id if it was inserted with exactly extent e.
func (q *Quadtree) Remove(e extent.Extent, id int) bool {
	for n := q.root; n != nil; n = n.childFor(e) {
		for i, it := range n.items {
			if it.id == id && sameXY(it.ext, e) {
				n.items = slices.Delete(n.items, i, i+1)
				q.n--
				return true
			}
		}
	}
	return false
}

// Query returns the ids whose extents intersect e, ascending.
func (q *Quadtree) Query(e extent.Extent) []int {
	if e.IsEmpty() {
		return nil
	}
	var ids []int
	q.root.query(e, &ids)
	slices.Sort(ids)
	return ids
}

func (n *quadNode) query(e extent.Extent, ids *[]int) {
	for _, it := range n.items {
		if it.ext.Intersects(e) {
			*ids = append(*ids, it.id)
		}
	}
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		if c.bounds.Intersects(e) {
			c.query(e, ids)
		}
	}
}

// Renumber drops items carrying removed and shifts larger ids down by one.
func (q *Quadtree) Renumber(removed int) {
	q.root.walk(func(n *quadNode) {
		kept := n.items[:0]
		for _, it := range n.items {
			switch {
			case it.id == removed:
				q.n--
				continue
			case it.id > removed:
				it.id--
			}
			kept = append(kept, it)
		}
		n.items = kept
	})
}

func (n *quadNode) walk(fn func(*quadNode)) {
	fn(n)
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

// Depth returns the depth of the deepest node.
func (q *Quadtree) Depth() int {
	depth := 0
	q.root.walk(func(n *quadNode) {
		depth = max(depth, n.depth)
	})
	return depth
}

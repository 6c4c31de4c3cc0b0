// Package extent provides the axis-aligned bounding box used by shapes, file
// headers and the spatial index.
package extent

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Extent represents an axis-aligned bounding box with optional Z and M ranges.
//
// The zero value is NOT empty (it is the degenerate box at the origin). Use New
// to obtain an empty extent that widens to whatever is first included.
//
// An Extent is a plain value: copying it copies the bounds. Shapes and the file
// header each own their own copy.
type Extent struct {
	MinX float64 // Western edge
	MinY float64 // Southern edge
	MaxX float64 // Eastern edge
	MaxY float64 // Northern edge

	MinZ float64 // NaN when no Z range is known
	MaxZ float64
	MinM float64 // NaN when no M range is known
	MaxM float64
}

// New returns an empty extent. Every ordinate is NaN.
func New() Extent {
	nan := math.NaN()
	return Extent{
		MinX: nan, MinY: nan, MaxX: nan, MaxY: nan,
		MinZ: nan, MaxZ: nan, MinM: nan, MaxM: nan,
	}
}

// NewXY returns a 2D extent. Z and M ranges are left unset.
func NewXY(minX, minY, maxX, maxY float64) Extent {
	e := New()
	e.MinX, e.MinY, e.MaxX, e.MaxY = minX, minY, maxX, maxY
	return e
}

// FromBound converts an orb.Bound to a 2D extent.
func FromBound(b orb.Bound) Extent {
	return NewXY(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Bound converts the X/Y part of the extent to an orb.Bound.
func (e Extent) Bound() orb.Bound {
	if e.IsEmpty() {
		return orb.Bound{}
	}
	return orb.Bound{
		Min: orb.Point{e.MinX, e.MinY},
		Max: orb.Point{e.MaxX, e.MaxY},
	}
}

// IsEmpty returns true if any X/Y ordinate is NaN or a minimum exceeds its maximum.
func (e Extent) IsEmpty() bool {
	if math.IsNaN(e.MinX) || math.IsNaN(e.MinY) || math.IsNaN(e.MaxX) || math.IsNaN(e.MaxY) {
		return true
	}
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// HasZ reports whether a Z range has been set.
func (e Extent) HasZ() bool {
	return !math.IsNaN(e.MinZ) && !math.IsNaN(e.MaxZ) && e.MinZ <= e.MaxZ
}

// HasM reports whether an M range has been set.
func (e Extent) HasM() bool {
	return !math.IsNaN(e.MinM) && !math.IsNaN(e.MaxM) && e.MinM <= e.MaxM
}

// ExpandToInclude widens the extent to include the point (x, y).
// Widening an empty extent adopts the point as both corners.
func (e *Extent) ExpandToInclude(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	if e.IsEmpty() {
		e.MinX, e.MaxX = x, x
		e.MinY, e.MaxY = y, y
		return
	}
	e.MinX = math.Min(e.MinX, x)
	e.MaxX = math.Max(e.MaxX, x)
	e.MinY = math.Min(e.MinY, y)
	e.MaxY = math.Max(e.MaxY, y)
}

// ExpandToIncludeZ widens the Z range to include z.
func (e *Extent) ExpandToIncludeZ(z float64) {
	e.MinZ, e.MaxZ = widen(e.MinZ, e.MaxZ, z, z)
}

// ExpandToIncludeM widens the M range to include m.
func (e *Extent) ExpandToIncludeM(m float64) {
	e.MinM, e.MaxM = widen(e.MinM, e.MaxM, m, m)
}

// ExpandToIncludeExtent widens the extent to include other, including its Z and
// M ranges when present. Empty inputs are ignored.
func (e *Extent) ExpandToIncludeExtent(other Extent) {
	if !other.IsEmpty() {
		if e.IsEmpty() {
			e.MinX, e.MinY, e.MaxX, e.MaxY = other.MinX, other.MinY, other.MaxX, other.MaxY
		} else {
			e.MinX = math.Min(e.MinX, other.MinX)
			e.MinY = math.Min(e.MinY, other.MinY)
			e.MaxX = math.Max(e.MaxX, other.MaxX)
			e.MaxY = math.Max(e.MaxY, other.MaxY)
		}
	}
	if other.HasZ() {
		e.MinZ, e.MaxZ = widen(e.MinZ, e.MaxZ, other.MinZ, other.MaxZ)
	}
	if other.HasM() {
		e.MinM, e.MaxM = widen(e.MinM, e.MaxM, other.MinM, other.MaxM)
	}
}

func widen(curMin, curMax, lo, hi float64) (float64, float64) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return curMin, curMax
	}
	if math.IsNaN(curMin) || math.IsNaN(curMax) || curMin > curMax {
		return lo, hi
	}
	return math.Min(curMin, lo), math.Max(curMax, hi)
}

// Intersects returns true if the two extents share at least one point.
// Touching edges count as intersecting. Empty extents intersect nothing.
func (e Extent) Intersects(other Extent) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return false
	}
	return !(other.MaxX < e.MinX ||
		other.MinX > e.MaxX ||
		other.MaxY < e.MinY ||
		other.MinY > e.MaxY)
}

// Contains returns true if other lies entirely inside e.
func (e Extent) Contains(other Extent) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return false
	}
	return other.MinX >= e.MinX && other.MaxX <= e.MaxX &&
		other.MinY >= e.MinY && other.MaxY <= e.MaxY
}

// ContainsPoint returns true if (x, y) is within the extent, edges included.
func (e Extent) ContainsPoint(x, y float64) bool {
	if e.IsEmpty() {
		return false
	}
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Within returns true if e lies entirely inside other.
func (e Extent) Within(other Extent) bool {
	return other.Contains(e)
}

// Intersection returns the overlapping region of the two extents.
//
// When the boxes do not overlap the result has Min > Max on at least one axis
// and IsEmpty reports true. Callers must check.
func (e Extent) Intersection(other Extent) Extent {
	if e.IsEmpty() || other.IsEmpty() {
		return New()
	}
	return NewXY(
		math.Max(e.MinX, other.MinX),
		math.Max(e.MinY, other.MinY),
		math.Min(e.MaxX, other.MaxX),
		math.Min(e.MaxY, other.MaxY),
	)
}

// Equals compares the X/Y bounds component-wise. Two empty extents are equal.
func (e Extent) Equals(other Extent) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return e.IsEmpty() && other.IsEmpty()
	}
	return e.MinX == other.MinX && e.MinY == other.MinY &&
		e.MaxX == other.MaxX && e.MaxY == other.MaxY
}

// Width returns MaxX-MinX, or 0 for an empty extent.
func (e Extent) Width() float64 {
	if e.IsEmpty() {
		return 0
	}
	return e.MaxX - e.MinX
}

// Height returns MaxY-MinY, or 0 for an empty extent.
func (e Extent) Height() float64 {
	if e.IsEmpty() {
		return 0
	}
	return e.MaxY - e.MinY
}

// Center returns the midpoint of the X/Y box.
func (e Extent) Center() (x, y float64) {
	return e.MinX + e.Width()/2, e.MinY + e.Height()/2
}

// Expand returns a new extent grown by margin in all X/Y directions.
func (e Extent) Expand(margin float64) Extent {
	if e.IsEmpty() {
		return e
	}
	out := e
	out.MinX -= margin
	out.MinY -= margin
	out.MaxX += margin
	out.MaxY += margin
	return out
}

func (e Extent) String() string {
	if e.IsEmpty() {
		return "[empty]"
	}
	s := fmt.Sprintf("[%g %g, %g %g]", e.MinX, e.MinY, e.MaxX, e.MaxY)
	if e.HasZ() {
		s += fmt.Sprintf(" z[%g %g]", e.MinZ, e.MaxZ)
	}
	if e.HasM() {
		s += fmt.Sprintf(" m[%g %g]", e.MinM, e.MaxM)
	}
	return s
}

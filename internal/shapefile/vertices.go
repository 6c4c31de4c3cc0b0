package shapefile

import (
	"slices"

	"github.com/beetlebugorg/shp/pkg/extent"
)

// Vertices is the flat vertex arena shared by every shape of one file.
//
// XY holds interleaved X,Y pairs in the same order as the on-disk point arrays
// so a record's points are decoded with one bulk read. Z is allocated only for
// Z files; M for M and Z files. len(XY) == 2*Len(), len(Z) and len(M) are
// either 0 or Len().
type Vertices struct {
	XY []float64
	Z  []float64
	M  []float64

	coords CoordinateType
}

// NewVertices creates an arena for the given coordinate type, reserving room
// for capacity points.
func NewVertices(coords CoordinateType, capacity int) *Vertices {
	v := &Vertices{
		XY:     make([]float64, 0, 2*capacity),
		coords: coords,
	}
	if coords == Z {
		v.Z = make([]float64, 0, capacity)
	}
	if coords != Regular {
		v.M = make([]float64, 0, capacity)
	}
	return v
}

// CoordinateType returns the arena layout.
func (v *Vertices) CoordinateType() CoordinateType { return v.coords }

// Len returns the number of points in the arena.
func (v *Vertices) Len() int { return len(v.XY) / 2 }

// HasZ reports whether the arena stores Z values.
func (v *Vertices) HasZ() bool { return v.coords == Z }

// HasM reports whether the arena stores M values.
func (v *Vertices) HasM() bool { return v.coords != Regular }

// Grow appends n zeroed points (M set to MeasureNoData) and returns the index
// of the first one.
func (v *Vertices) Grow(n int) int {
	start := v.Len()
	v.XY = slices.Grow(v.XY, 2*n)[:2*(start+n)]
	clear(v.XY[2*start:])
	if v.HasZ() {
		v.Z = slices.Grow(v.Z, n)[:start+n]
		clear(v.Z[start:])
	}
	if v.HasM() {
		v.M = slices.Grow(v.M, n)[:start+n]
		for i := start; i < start+n; i++ {
			v.M[i] = MeasureNoData
		}
	}
	return start
}

// Set overwrites point i. z and m are ignored when the arena does not store them.
func (v *Vertices) Set(i int, x, y, z, m float64) {
	v.XY[2*i] = x
	v.XY[2*i+1] = y
	if v.HasZ() {
		v.Z[i] = z
	}
	if v.HasM() {
		v.M[i] = m
	}
}

// Append adds one point and returns its index.
func (v *Vertices) Append(x, y, z, m float64) int {
	i := v.Grow(1)
	v.Set(i, x, y, z, m)
	return i
}

// XYAt returns the planar coordinates of point i.
func (v *Vertices) XYAt(i int) (x, y float64) {
	return v.XY[2*i], v.XY[2*i+1]
}

// ZAt returns the Z value of point i, or 0 for arenas without Z.
func (v *Vertices) ZAt(i int) float64 {
	if !v.HasZ() {
		return 0
	}
	return v.Z[i]
}

// MAt returns the M value of point i, or MeasureNoData for arenas without M.
func (v *Vertices) MAt(i int) float64 {
	if !v.HasM() {
		return MeasureNoData
	}
	return v.M[i]
}

// Remove deletes n points starting at start, shifting later points down.
func (v *Vertices) Remove(start, n int) {
	if n <= 0 {
		return
	}
	v.XY = slices.Delete(v.XY, 2*start, 2*(start+n))
	if v.HasZ() {
		v.Z = slices.Delete(v.Z, start, start+n)
	}
	if v.HasM() {
		v.M = slices.Delete(v.M, start, start+n)
	}
}

// ComputeExtent returns the bounds of points [start, start+n), including the
// Z range and the M range of measures that are not MeasureNoData.
func (v *Vertices) ComputeExtent(start, n int) extent.Extent {
	e := extent.New()
	for i := start; i < start+n; i++ {
		e.ExpandToInclude(v.XY[2*i], v.XY[2*i+1])
		if v.HasZ() {
			e.ExpandToIncludeZ(v.Z[i])
		}
		if v.HasM() && !IsNoData(v.M[i]) {
			e.ExpandToIncludeM(v.M[i])
		}
	}
	return e
}

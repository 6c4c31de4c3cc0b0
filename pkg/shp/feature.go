package shp

import (
	"fmt"
	"maps"
	"slices"

	"github.com/beetlebugorg/shp/internal/shapefile"
	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one shape materialised out of the arena.
//
// Geometry is an orb.Point, orb.MultiPoint, orb.LineString,
// orb.MultiLineString, orb.Polygon or orb.MultiPolygon, or nil for a null
// record. Z and M run parallel to the vertices in file order.
type Feature struct {
	Index     int
	ShapeType ShapeType
	Geometry  orb.Geometry

	Z []float64 // nil unless the file has Z
	M []float64 // nil unless the file has M; MeasureNoData marks gaps

	// Parts holds the first vertex of each part, relative to the feature.
	Parts []int

	Extent     extent.Extent
	Attributes map[string]any
}

// IsNull reports whether the feature has no geometry.
func (f *Feature) IsNull() bool {
	return f.Geometry == nil
}

// NumPoints returns the vertex count.
func (f *Feature) NumPoints() int {
	if f.Geometry == nil {
		return 0
	}
	return countPoints(f.Geometry)
}

func countPoints(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += countPoints(p)
		}
		return n
	}
	return 0
}

// GeoJSON converts the feature to a GeoJSON feature with its attributes as
// properties. Null features return nil.
func (f *Feature) GeoJSON() *geojson.Feature {
	if f.Geometry == nil {
		return nil
	}
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.Index
	if f.Attributes != nil {
		gf.Properties = maps.Clone(f.Attributes)
	}
	return gf
}

// materialise copies shape s out of the arena.
func materialise(index int, s *shapefile.ShapeRange, v *shapefile.Vertices) *Feature {
	f := &Feature{
		Index:     index,
		ShapeType: s.ShapeType,
		Extent:    s.Extent,
	}
	if s.IsNull() {
		return f
	}

	start, end := s.StartIndex, s.End()
	if v.HasZ() {
		f.Z = slices.Clone(v.Z[start:end])
	}
	if v.HasM() {
		f.M = slices.Clone(v.M[start:end])
	}
	f.Parts = make([]int, len(s.Parts))
	for i, p := range s.Parts {
		f.Parts[i] = p.PartOffset
	}

	switch s.ShapeType.Kind() {
	case shapefile.KindPoint:
		x, y := v.XYAt(start)
		f.Geometry = orb.Point{x, y}
	case shapefile.KindMultiPoint:
		f.Geometry = orb.MultiPoint(points(v, start, end))
	case shapefile.KindPolyLine:
		f.Geometry = lineGeometry(s, v)
	case shapefile.KindPolygon:
		f.Geometry = polygonGeometry(s, v)
	}
	return f
}

func points(v *shapefile.Vertices, start, end int) []orb.Point {
	pts := make([]orb.Point, end-start)
	for i := range pts {
		pts[i] = orb.Point{v.XY[2*(start+i)], v.XY[2*(start+i)+1]}
	}
	return pts
}

func lineGeometry(s *shapefile.ShapeRange, v *shapefile.Vertices) orb.Geometry {
	if len(s.Parts) == 1 {
		start, end := s.PartBounds(0)
		return orb.LineString(points(v, start, end))
	}
	mls := make(orb.MultiLineString, len(s.Parts))
	for i := range s.Parts {
		start, end := s.PartBounds(i)
		mls[i] = orb.LineString(points(v, start, end))
	}
	return mls
}

// polygonGeometry groups rings into polygons. A clockwise ring starts a new
// polygon; a counter-clockwise ring is a hole of the polygon before it.
func polygonGeometry(s *shapefile.ShapeRange, v *shapefile.Vertices) orb.Geometry {
	var mp orb.MultiPolygon
	for i := range s.Parts {
		start, end := s.PartBounds(i)
		ring := orb.Ring(points(v, start, end))
		if len(mp) == 0 || ring.Orientation() != orb.CCW {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

// Vertex is one input coordinate. Z and M are ignored by files that do not
// store them; use MeasureNoData for an unknown M.
type Vertex struct {
	X, Y, Z, M float64
}

// Shape is the input to AddShape: one slice of vertices per part. A shape
// with no parts is written as a null record.
type Shape struct {
	Parts [][]Vertex
}

// IsNull reports whether the shape has no vertices.
func (s Shape) IsNull() bool {
	return s.NumPoints() == 0
}

// NumPoints returns the total vertex count.
func (s Shape) NumPoints() int {
	n := 0
	for _, p := range s.Parts {
		n += len(p)
	}
	return n
}

// ShapeFromPoint returns a single-vertex shape with no measure.
func ShapeFromPoint(p orb.Point) Shape {
	return Shape{Parts: [][]Vertex{{vertex(p)}}}
}

func vertex(p orb.Point) Vertex {
	return Vertex{X: p[0], Y: p[1], M: MeasureNoData}
}

func vertices(pts []orb.Point) []Vertex {
	out := make([]Vertex, len(pts))
	for i, p := range pts {
		out[i] = vertex(p)
	}
	return out
}

// ShapeFromGeometry converts an orb geometry to a Shape. Polygon rings are
// closed and oriented the shapefile way: outer rings clockwise, holes
// counter-clockwise. Z is zero and M is MeasureNoData on every vertex.
func ShapeFromGeometry(g orb.Geometry) (Shape, error) {
	switch g := g.(type) {
	case nil:
		return Shape{}, nil
	case orb.Point:
		return ShapeFromPoint(g), nil
	case orb.MultiPoint:
		return Shape{Parts: [][]Vertex{vertices(g)}}, nil
	case orb.LineString:
		return Shape{Parts: [][]Vertex{vertices(g)}}, nil
	case orb.MultiLineString:
		var s Shape
		for _, ls := range g {
			s.Parts = append(s.Parts, vertices(ls))
		}
		return s, nil
	case orb.Ring:
		return Shape{Parts: [][]Vertex{vertices(orient(g, orb.CW))}}, nil
	case orb.Polygon:
		return Shape{Parts: polygonParts(g)}, nil
	case orb.MultiPolygon:
		var s Shape
		for _, p := range g {
			s.Parts = append(s.Parts, polygonParts(p)...)
		}
		return s, nil
	case orb.Bound:
		return ShapeFromGeometry(g.ToPolygon())
	default:
		return Shape{}, fmt.Errorf("%w: unsupported geometry %T", ErrInvalidShape, g)
	}
}

func polygonParts(p orb.Polygon) [][]Vertex {
	parts := make([][]Vertex, len(p))
	for i, r := range p {
		want := orb.CCW
		if i == 0 {
			want = orb.CW
		}
		parts[i] = vertices(orient(r, want))
	}
	return parts
}

// orient returns a closed copy of r wound in direction want.
func orient(r orb.Ring, want orb.Orientation) orb.Ring {
	out := slices.Clone(r)
	if len(out) > 0 && !out.Closed() {
		out = append(out, out[0])
	}
	if o := out.Orientation(); o != 0 && o != want {
		out.Reverse()
	}
	return out
}

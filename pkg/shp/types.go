package shp

import "github.com/beetlebugorg/shp/internal/shapefile"

// ShapeType is the geometry tag of a file and its records.
type ShapeType = shapefile.ShapeType

// Kind is the geometry family of a shape type, independent of Z/M.
type Kind = shapefile.Kind

// CoordinateType tells which ordinates each vertex carries.
type CoordinateType = shapefile.CoordinateType

// Header is the fixed 100-byte file header.
type Header = shapefile.Header

// ShapeRange describes one record as a view into the vertex arena.
type ShapeRange = shapefile.ShapeRange

// PartRange is one ring or segment chain of a shape.
type PartRange = shapefile.PartRange

// Vertices is the flat vertex arena of a feature set.
type Vertices = shapefile.Vertices

// IndexEntry locates one record in the .shp file.
type IndexEntry = shapefile.IndexEntry

const (
	NullShape   = shapefile.NullShape
	Point       = shapefile.Point
	PolyLine    = shapefile.PolyLine
	Polygon     = shapefile.Polygon
	MultiPoint  = shapefile.MultiPoint
	PointZ      = shapefile.PointZ
	PolyLineZ   = shapefile.PolyLineZ
	PolygonZ    = shapefile.PolygonZ
	MultiPointZ = shapefile.MultiPointZ
	PointM      = shapefile.PointM
	PolyLineM   = shapefile.PolyLineM
	PolygonM    = shapefile.PolygonM
	MultiPointM = shapefile.MultiPointM
)

const (
	KindNull       = shapefile.KindNull
	KindPoint      = shapefile.KindPoint
	KindMultiPoint = shapefile.KindMultiPoint
	KindPolyLine   = shapefile.KindPolyLine
	KindPolygon    = shapefile.KindPolygon
)

const (
	Regular  = shapefile.Regular
	Measured = shapefile.Measured
	Z        = shapefile.Z
)

// MeasureNoData marks an absent M value.
const MeasureNoData = shapefile.MeasureNoData

// IsNoData reports whether m is a no-data measure.
func IsNoData(m float64) bool {
	return shapefile.IsNoData(m)
}

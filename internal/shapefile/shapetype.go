package shapefile

import "fmt"

// ShapeType is the geometry tag stored in the file header and in every record.
type ShapeType int32

// Shape type tags defined by the ESRI Shapefile Technical Description.
const (
	NullShape   ShapeType = 0
	Point       ShapeType = 1
	PolyLine    ShapeType = 3
	Polygon     ShapeType = 5
	MultiPoint  ShapeType = 8
	PointZ      ShapeType = 11
	PolyLineZ   ShapeType = 13
	PolygonZ    ShapeType = 15
	MultiPointZ ShapeType = 18
	PointM      ShapeType = 21
	PolyLineM   ShapeType = 23
	PolygonM    ShapeType = 25
	MultiPointM ShapeType = 28
	MultiPatch  ShapeType = 31
)

// Kind is the geometry family of a shape type, independent of Z/M.
type Kind int

const (
	KindNull Kind = iota
	KindPoint
	KindMultiPoint
	KindPolyLine
	KindPolygon
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindPoint:
		return "Point"
	case KindMultiPoint:
		return "MultiPoint"
	case KindPolyLine:
		return "PolyLine"
	case KindPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// CoordinateType describes which ordinates each vertex carries.
type CoordinateType int

const (
	// Regular vertices carry X and Y only.
	Regular CoordinateType = iota
	// Measured vertices carry X, Y and M.
	Measured
	// Z vertices carry X, Y, Z and M.
	Z
)

func (c CoordinateType) String() string {
	switch c {
	case Regular:
		return "Regular"
	case Measured:
		return "M"
	case Z:
		return "Z"
	default:
		return "Unknown"
	}
}

// Kind returns the geometry family of the tag.
func (t ShapeType) Kind() Kind {
	switch t {
	case NullShape:
		return KindNull
	case Point, PointM, PointZ:
		return KindPoint
	case MultiPoint, MultiPointM, MultiPointZ:
		return KindMultiPoint
	case PolyLine, PolyLineM, PolyLineZ:
		return KindPolyLine
	case Polygon, PolygonM, PolygonZ:
		return KindPolygon
	default:
		return KindUnknown
	}
}

// CoordinateType returns the vertex layout implied by the tag.
func (t ShapeType) CoordinateType() CoordinateType {
	switch t {
	case PointZ, PolyLineZ, PolygonZ, MultiPointZ:
		return Z
	case PointM, PolyLineM, PolygonM, MultiPointM:
		return Measured
	default:
		return Regular
	}
}

// HasZ reports whether records of this type carry Z values.
func (t ShapeType) HasZ() bool { return t.CoordinateType() == Z }

// HasM reports whether records of this type may carry M values.
// Z types always reserve space for measures.
func (t ShapeType) HasM() bool { return t.CoordinateType() != Regular }

// Supported reports whether the codec can read and write this type in a file header.
func (t ShapeType) Supported() bool {
	k := t.Kind()
	return k != KindNull && k != KindUnknown
}

// MakeShapeType combines a kind and coordinate type into a tag.
func MakeShapeType(k Kind, c CoordinateType) ShapeType {
	var base ShapeType
	switch k {
	case KindPoint:
		base = Point
	case KindMultiPoint:
		base = MultiPoint
	case KindPolyLine:
		base = PolyLine
	case KindPolygon:
		base = Polygon
	default:
		return NullShape
	}
	switch c {
	case Z:
		return base + 10
	case Measured:
		return base + 20
	default:
		return base
	}
}

func (t ShapeType) String() string {
	switch t {
	case NullShape:
		return "NullShape"
	case MultiPatch:
		return "MultiPatch"
	}
	k := t.Kind()
	if k == KindUnknown {
		return fmt.Sprintf("ShapeType(%d)", int32(t))
	}
	switch t.CoordinateType() {
	case Z:
		return k.String() + "Z"
	case Measured:
		return k.String() + "M"
	default:
		return k.String()
	}
}

package shapefile

import "math"

// MeasureNoData is stored for M values that are absent from a record.
const MeasureNoData = -math.MaxFloat64

// noDataThreshold follows the shapefile convention that any measure below
// -10^38 means "no data".
const noDataThreshold = -1e38

// IsNoData reports whether m is a no-data measure.
func IsNoData(m float64) bool {
	return m < noDataThreshold || math.IsNaN(m)
}

// MeasuresPresent decides whether an M-capable record actually carries its
// measure block.
//
// The format marks measures optional without any flag: a record carries them
// only if its declared content length leaves room after the fields that are
// always present. baseBytes is the size of those fields (shape type included);
// measureBytes is the size of the full measure block (range plus values).
//
// A record that declares more than baseBytes but less than a full measure
// block is treated as having no measures, so the decoder never reads past the
// declared content length.
func MeasuresPresent(contentLengthWords int32, baseBytes, measureBytes int) bool {
	declared := int(contentLengthWords) * 2
	return declared > baseBytes && declared >= baseBytes+measureBytes
}

// recordSize returns the byte size of a record's content (shape type included)
// split into the always-present part and the optional measure block.
func recordSize(t ShapeType, numParts, numPoints int) (base, measure int) {
	switch t.Kind() {
	case KindNull:
		return 4, 0
	case KindPoint:
		base = 4 + 16
		if t.HasZ() {
			base += 8
		}
		if t.HasM() {
			measure = 8
		}
	case KindMultiPoint:
		base = 4 + 32 + 4 + 16*numPoints
		if t.HasZ() {
			base += 16 + 8*numPoints
		}
		if t.HasM() {
			measure = 16 + 8*numPoints
		}
	case KindPolyLine, KindPolygon:
		base = 4 + 32 + 4 + 4 + 4*numParts + 16*numPoints
		if t.HasZ() {
			base += 16 + 8*numPoints
		}
		if t.HasM() {
			measure = 16 + 8*numPoints
		}
	}
	return base, measure
}

// ContentLength returns the record content length in 16-bit words for a shape
// written with its measure block (which the writer always includes for M and Z
// types).
func ContentLength(t ShapeType, numParts, numPoints int) int32 {
	base, measure := recordSize(t, numParts, numPoints)
	return int32((base + measure) / 2)
}

// PointCapacity returns the largest number of points a record of this type and
// declared content length can hold. It is used to size the arena before the
// fill pass.
func PointCapacity(t ShapeType, contentLengthWords int32) int {
	declared := int(contentLengthWords) * 2
	switch t.Kind() {
	case KindPoint:
		return 1
	case KindMultiPoint:
		return max(0, (declared-40)/16)
	case KindPolyLine, KindPolygon:
		return max(0, (declared-44)/16)
	default:
		return 0
	}
}


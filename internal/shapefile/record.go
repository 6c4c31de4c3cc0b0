package shapefile

import (
	"github.com/beetlebugorg/shp/internal/binio"
	"github.com/beetlebugorg/shp/pkg/extent"
)

// RecordHeader precedes every record in the .shp file. The shape type tag is
// technically the first content field but is always read with the header.
type RecordHeader struct {
	Number        int32 // 1-based record number, big-endian
	ContentLength int32 // 16-bit words, big-endian, shape type included
	ShapeType     ShapeType
}

// ReadRecordHeader reads the 12 bytes at the start of a record.
func ReadRecordHeader(r *binio.Reader) (RecordHeader, error) {
	var h RecordHeader
	var err error
	if h.Number, err = r.ReadInt32BE(); err != nil {
		return h, err
	}
	if h.ContentLength, err = r.ReadInt32BE(); err != nil {
		return h, err
	}
	t, err := r.ReadInt32LE()
	if err != nil {
		return h, err
	}
	h.ShapeType = ShapeType(t)
	return h, nil
}

// PartRange is one ring or segment chain of a shape, expressed as an offset
// into the owning shape's slice of the arena.
type PartRange struct {
	PartOffset  int // first vertex, relative to ShapeRange.StartIndex
	NumVertices int
}

// ShapeRange describes one record as a view into the shared arena.
type ShapeRange struct {
	ShapeType     ShapeType
	RecordNumber  int32
	StartIndex    int // first vertex in the arena
	NumPoints     int
	NumParts      int
	Extent        extent.Extent
	Parts         []PartRange
	ContentLength int32 // 16-bit words as last read or written
}

// IsNull reports whether the record has no geometry.
func (s *ShapeRange) IsNull() bool {
	return s.ShapeType == NullShape
}

// End returns the arena index one past the shape's last vertex.
func (s *ShapeRange) End() int {
	return s.StartIndex + s.NumPoints
}

// PartBounds returns the arena indexes [start, end) of part i.
func (s *ShapeRange) PartBounds(i int) (start, end int) {
	p := s.Parts[i]
	start = s.StartIndex + p.PartOffset
	return start, start + p.NumVertices
}

// PartOffsets returns the on-disk Parts array.
func (s *ShapeRange) PartOffsets() []int32 {
	offsets := make([]int32, len(s.Parts))
	for i, p := range s.Parts {
		offsets[i] = int32(p.PartOffset)
	}
	return offsets
}

// NullRange returns the placeholder range for a NullShape record that sits at
// arena position start.
func NullRange(number int32, start int) ShapeRange {
	return ShapeRange{
		ShapeType:     NullShape,
		RecordNumber:  number,
		StartIndex:    start,
		Extent:        extent.New(),
		ContentLength: 2,
	}
}

// PartRangesFromOffsets converts an on-disk Parts array into part ranges.
// Part i covers [offsets[i], offsets[i+1]) and the last part runs to numPoints.
func PartRangesFromOffsets(offsets []int32, numPoints int) []PartRange {
	parts := make([]PartRange, len(offsets))
	for i, off := range offsets {
		end := numPoints
		if i+1 < len(offsets) {
			end = int(offsets[i+1])
		}
		parts[i] = PartRange{PartOffset: int(off), NumVertices: end - int(off)}
	}
	return parts
}

package shapefile

import (
	"encoding/binary"
	"fmt"

	"github.com/beetlebugorg/shp/internal/binio"
	"github.com/golang/glog"
)

var le = binary.LittleEndian

// recordCodec decodes and encodes the payload of one geometry kind. The record
// header and shape type tag are handled by the caller.
type recordCodec interface {
	decode(r *binio.Reader, h RecordHeader, v *Vertices, s *ShapeRange) error
	encode(w *binio.Writer, s *ShapeRange, v *Vertices) error
}

// codecFor returns the codec for a supported shape type, or nil.
func codecFor(t ShapeType) recordCodec {
	switch t.Kind() {
	case KindPoint:
		return pointCodec{t: t}
	case KindMultiPoint:
		return multiPointCodec{t: t}
	case KindPolyLine, KindPolygon:
		return &polyCodec{t: t}
	default:
		return nil
	}
}

// singlePart is shared by every point shape. It must never be modified.
var singlePart = []PartRange{{PartOffset: 0, NumVertices: 1}}

func tooShort(h RecordHeader, need int) error {
	return &ErrInvalidRecord{
		Record: int(h.Number),
		Reason: fmt.Sprintf("content length %d bytes cannot hold %d bytes of %v data",
			int(h.ContentLength)*2, need, h.ShapeType),
	}
}

// readMeasureBlock reads the optional [Mmin Mmax M...] block of a multipoint or
// poly record into v.M[start:start+n]. When the block is absent the slots keep
// the MeasureNoData values written by Vertices.Grow.
func readMeasureBlock(r *binio.Reader, h RecordHeader, base, measure int, v *Vertices, start, n int) error {
	if !MeasuresPresent(h.ContentLength, base, measure) {
		if declared := int(h.ContentLength) * 2; declared > base {
			glog.Warningf("record %d: %d trailing bytes cannot hold a %d-byte measure block; measures dropped",
				h.Number, declared-base, measure)
		}
		return nil
	}
	if err := r.Skip(16); err != nil { // Mmin, Mmax
		return err
	}
	return r.ReadFloat64s(v.M[start:start+n], le)
}

// writeRange writes a [min max] pair, using MeasureNoData when the range is unset.
func writeRange(w *binio.Writer, lo, hi float64, ok bool) error {
	if !ok {
		lo, hi = MeasureNoData, MeasureNoData
	}
	if err := w.WriteFloat64(lo, le); err != nil {
		return err
	}
	return w.WriteFloat64(hi, le)
}

func writeBox(w *binio.Writer, s *ShapeRange) error {
	e := s.Extent
	box := []float64{e.MinX, e.MinY, e.MaxX, e.MaxY}
	if e.IsEmpty() {
		box = []float64{0, 0, 0, 0}
	}
	return w.WriteFloat64s(box, le)
}

// pointCodec handles Point, PointM and PointZ.
//
//	X Y [Z] [M]
type pointCodec struct {
	t ShapeType
}

func (c pointCodec) decode(r *binio.Reader, h RecordHeader, v *Vertices, s *ShapeRange) error {
	base, measure := recordSize(c.t, 0, 1)
	if int(h.ContentLength)*2 < base {
		return tooShort(h, base)
	}

	var xyz [3]float64
	n := 2
	if c.t.HasZ() {
		n = 3
	}
	if err := r.ReadFloat64s(xyz[:n], le); err != nil {
		return err
	}

	m := MeasureNoData
	if c.t.HasM() && MeasuresPresent(h.ContentLength, base, measure) {
		var err error
		if m, err = r.ReadFloat64LE(); err != nil {
			return err
		}
	}

	i := v.Append(xyz[0], xyz[1], xyz[2], m)
	s.StartIndex = i
	s.NumPoints = 1
	s.NumParts = 1
	s.Parts = singlePart
	s.Extent = v.ComputeExtent(i, 1)
	return nil
}

func (c pointCodec) encode(w *binio.Writer, s *ShapeRange, v *Vertices) error {
	i := s.StartIndex
	if err := w.WriteFloat64s(v.XY[2*i:2*i+2], le); err != nil {
		return err
	}
	if c.t.HasZ() {
		if err := w.WriteFloat64(v.Z[i], le); err != nil {
			return err
		}
	}
	if c.t.HasM() {
		return w.WriteFloat64(v.M[i], le)
	}
	return nil
}

// multiPointCodec handles MultiPoint, MultiPointM and MultiPointZ.
//
//	Box[4] NumPoints Points[2N] [Zmin Zmax Z[N]] [Mmin Mmax M[N]]
type multiPointCodec struct {
	t ShapeType
}

func (c multiPointCodec) decode(r *binio.Reader, h RecordHeader, v *Vertices, s *ShapeRange) error {
	if int(h.ContentLength)*2 < 40 {
		return tooShort(h, 40)
	}
	if err := r.Skip(32); err != nil { // box, recomputed from the points
		return err
	}
	count, err := r.ReadInt32LE()
	if err != nil {
		return err
	}
	n := int(count)
	if n < 0 {
		return &ErrInvalidRecord{Record: int(h.Number), Reason: fmt.Sprintf("negative point count %d", n)}
	}
	base, measure := recordSize(c.t, 0, n)
	if int(h.ContentLength)*2 < base {
		return tooShort(h, base)
	}

	start := v.Grow(n)
	if err := r.ReadFloat64s(v.XY[2*start:2*(start+n)], le); err != nil {
		return err
	}
	if c.t.HasZ() {
		if err := r.Skip(16); err != nil {
			return err
		}
		if err := r.ReadFloat64s(v.Z[start:start+n], le); err != nil {
			return err
		}
	}
	if c.t.HasM() {
		if err := readMeasureBlock(r, h, base, measure, v, start, n); err != nil {
			return err
		}
	}

	s.StartIndex = start
	s.NumPoints = n
	if n > 0 {
		s.NumParts = 1
		s.Parts = []PartRange{{PartOffset: 0, NumVertices: n}}
	}
	s.Extent = v.ComputeExtent(start, n)
	return nil
}

func (c multiPointCodec) encode(w *binio.Writer, s *ShapeRange, v *Vertices) error {
	if err := writeBox(w, s); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(s.NumPoints), le); err != nil {
		return err
	}
	return writePointArrays(w, c.t, s, v)
}

// writePointArrays writes Points[2N] [Zmin Zmax Z[N]] [Mmin Mmax M[N]].
func writePointArrays(w *binio.Writer, t ShapeType, s *ShapeRange, v *Vertices) error {
	start, end := s.StartIndex, s.End()
	if err := w.WriteFloat64s(v.XY[2*start:2*end], le); err != nil {
		return err
	}
	if t.HasZ() {
		if err := writeRange(w, s.Extent.MinZ, s.Extent.MaxZ, s.Extent.HasZ()); err != nil {
			return err
		}
		if err := w.WriteFloat64s(v.Z[start:end], le); err != nil {
			return err
		}
	}
	if t.HasM() {
		if err := writeRange(w, s.Extent.MinM, s.Extent.MaxM, s.Extent.HasM()); err != nil {
			return err
		}
		if err := w.WriteFloat64s(v.M[start:end], le); err != nil {
			return err
		}
	}
	return nil
}

// polyCodec handles PolyLine and Polygon in all coordinate types.
//
//	Box[4] NumParts NumPoints Parts[P] Points[2N] [Zmin Zmax Z[N]] [Mmin Mmax M[N]]
type polyCodec struct {
	t       ShapeType
	offsets []int32 // reused between records
}

func (c *polyCodec) decode(r *binio.Reader, h RecordHeader, v *Vertices, s *ShapeRange) error {
	if int(h.ContentLength)*2 < 44 {
		return tooShort(h, 44)
	}
	if err := r.Skip(32); err != nil { // box, recomputed from the points
		return err
	}
	var counts [2]int32
	if err := r.ReadInt32s(counts[:], le); err != nil {
		return err
	}
	numParts, numPoints := int(counts[0]), int(counts[1])
	if numParts < 0 || numPoints < 0 {
		return &ErrInvalidRecord{Record: int(h.Number),
			Reason: fmt.Sprintf("negative counts: %d parts, %d points", numParts, numPoints)}
	}
	base, measure := recordSize(c.t, numParts, numPoints)
	if int(h.ContentLength)*2 < base {
		return tooShort(h, base)
	}

	if cap(c.offsets) < numParts {
		c.offsets = make([]int32, numParts)
	}
	offsets := c.offsets[:numParts]
	if err := r.ReadInt32s(offsets, le); err != nil {
		return err
	}
	if err := ValidatePartOffsets(int(h.Number), offsets, numPoints); err != nil {
		return err
	}
	if numParts == 0 && numPoints > 0 {
		offsets = []int32{0}
	}

	start := v.Grow(numPoints)
	if err := r.ReadFloat64s(v.XY[2*start:2*(start+numPoints)], le); err != nil {
		return err
	}
	if c.t.HasZ() {
		if err := r.Skip(16); err != nil {
			return err
		}
		if err := r.ReadFloat64s(v.Z[start:start+numPoints], le); err != nil {
			return err
		}
	}
	if c.t.HasM() {
		if err := readMeasureBlock(r, h, base, measure, v, start, numPoints); err != nil {
			return err
		}
	}

	s.StartIndex = start
	s.NumPoints = numPoints
	s.Parts = PartRangesFromOffsets(offsets, numPoints)
	s.NumParts = len(s.Parts)
	s.Extent = v.ComputeExtent(start, numPoints)
	return nil
}

func (c *polyCodec) encode(w *binio.Writer, s *ShapeRange, v *Vertices) error {
	if err := writeBox(w, s); err != nil {
		return err
	}
	if err := w.WriteInt32s([]int32{int32(len(s.Parts)), int32(s.NumPoints)}, le); err != nil {
		return err
	}
	if err := w.WriteInt32s(s.PartOffsets(), le); err != nil {
		return err
	}
	return writePointArrays(w, c.t, s, v)
}

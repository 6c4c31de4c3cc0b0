package shapefile

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/beetlebugorg/shp/internal/binio"
	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/golang/glog"
)

// Encoder writes a vertex arena back out as a .shp/.shx pair.
type Encoder struct {
	ShapeType ShapeType
	Progress  ProgressFunc
}

// NewEncoder returns an encoder for files of type t.
func NewEncoder(t ShapeType) *Encoder {
	return &Encoder{ShapeType: t}
}

// WriteShapes writes shapes to shp and the matching index to shx.
//
// Record numbers, content lengths and extents are recomputed from the arena
// and stored back into shapes, so the slice reflects exactly what was written.
// The returned header is the .shp header; the .shx header differs only in
// FileLength.
func (e *Encoder) WriteShapes(ctx context.Context, shp, shx io.Writer, shapes []ShapeRange, v *Vertices) (Header, []IndexEntry, error) {
	codec := codecFor(e.ShapeType)
	if codec == nil {
		return Header{}, nil, &ErrUnsupportedShapeType{Type: e.ShapeType}
	}
	if err := ValidateRanges(shapes, v); err != nil {
		return Header{}, nil, err
	}

	lengths := make([]int32, len(shapes))
	total := extent.New()
	for i := range shapes {
		s := &shapes[i]
		s.RecordNumber = int32(i + 1)
		if s.IsNull() {
			s.ContentLength = 2
			s.Extent = extent.New()
		} else {
			if s.ShapeType != e.ShapeType {
				return Header{}, nil, &ErrShapeTypeMismatch{Record: i + 1, Want: e.ShapeType, Got: s.ShapeType}
			}
			s.ContentLength = ContentLength(e.ShapeType, len(s.Parts), s.NumPoints)
			s.Extent = v.ComputeExtent(s.StartIndex, s.NumPoints)
			total.ExpandToIncludeExtent(s.Extent)
		}
		lengths[i] = s.ContentLength
	}

	entries := BuildIndex(lengths)
	fileWords := HeaderWords
	for _, cl := range lengths {
		fileWords += RecordHeaderWords + cl
	}
	header := NewHeader(e.ShapeType, fileWords, total)

	w := binio.NewWriter(shp)
	if err := w.WriteBytes(headerBytes(header)); err != nil {
		return Header{}, nil, fmt.Errorf("write header: %w", err)
	}

	lastPercent := -1
	for i := range shapes {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Header{}, nil, err
			}
		}

		s := &shapes[i]
		if w.Position() != entries[i].Offset {
			return Header{}, nil, fmt.Errorf("record %d: writer at byte %d, index says %d",
				i+1, w.Position(), entries[i].Offset)
		}
		if err := writeRecord(w, codec, s, v); err != nil {
			return Header{}, nil, fmt.Errorf("write record %d: %w", i+1, err)
		}

		if e.Progress != nil {
			if p := (i + 1) * 100 / len(shapes); p != lastPercent {
				lastPercent = p
				e.Progress(p, fmt.Sprintf("encoded %d of %d records", i+1, len(shapes)))
			}
		}
	}
	if err := w.Flush(); err != nil {
		return Header{}, nil, err
	}

	if err := WriteIndex(shx, header, entries); err != nil {
		return Header{}, nil, err
	}

	if glog.V(2) {
		glog.Infof("encoded %d %v records, %d bytes", len(shapes), e.ShapeType, header.FileSize())
	}
	return header, entries, nil
}

func headerBytes(h Header) []byte {
	b := h.Encode()
	return b[:]
}

func writeRecord(w *binio.Writer, codec recordCodec, s *ShapeRange, v *Vertices) error {
	if err := w.WriteInt32(s.RecordNumber, binary.BigEndian); err != nil {
		return err
	}
	if err := w.WriteInt32(s.ContentLength, binary.BigEndian); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(s.ShapeType), le); err != nil {
		return err
	}
	if s.IsNull() {
		return nil
	}
	return codec.encode(w, s, v)
}

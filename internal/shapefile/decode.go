package shapefile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beetlebugorg/shp/internal/binio"
	"github.com/golang/glog"
)

// ProgressFunc receives coarse progress of a decode or encode pass.
type ProgressFunc func(percent int, message string)

// cancelCheckInterval is how many records are processed between context checks.
const cancelCheckInterval = 64

// Decoder fills a vertex arena from the records of one .shp file.
type Decoder struct {
	// ShapeType is the file type from the header. Every non-null record must
	// carry the same tag.
	ShapeType ShapeType

	// Progress, if set, is called whenever the completed percentage changes.
	Progress ProgressFunc

	// MaxPoints caps arena preallocation. A corrupt index can declare
	// arbitrary content lengths, so callers pass a bound derived from the
	// .shp size. Zero disables the cap.
	MaxPoints int

	// FileSize is the length of the .shp in bytes. Records whose declared
	// content runs past it are clamped to what is actually there, so vertex
	// counts are checked against real bytes before anything is allocated.
	// Zero means ReadShapes asks the reader.
	FileSize int64
}

// NewDecoder returns a decoder for files of type t.
func NewDecoder(t ShapeType) *Decoder {
	return &Decoder{ShapeType: t}
}

// ReadShapes decodes every record listed in index. Each record is reached by
// seeking to its own offset, so gaps between records are tolerated.
//
// The returned ranges are in index order and occupy consecutive runs of the
// returned arena. Null records contribute an empty range and no vertices.
func (d *Decoder) ReadShapes(ctx context.Context, r *binio.Reader, index []IndexEntry) ([]ShapeRange, *Vertices, error) {
	codec := codecFor(d.ShapeType)
	if codec == nil {
		return nil, nil, &ErrUnsupportedShapeType{Type: d.ShapeType}
	}

	size := d.FileSize
	if size <= 0 {
		var err error
		if size, err = r.Size(); err != nil {
			return nil, nil, err
		}
	}

	v := NewVertices(d.ShapeType.CoordinateType(), d.arenaCapacity(index, size))
	shapes := make([]ShapeRange, len(index))

	lastPercent := -1
	for i, entry := range index {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		if err := d.readRecord(r, codec, i, entry, size, v, &shapes[i]); err != nil {
			return nil, nil, err
		}

		if d.Progress != nil {
			if p := (i + 1) * 100 / len(index); p != lastPercent {
				lastPercent = p
				d.Progress(p, fmt.Sprintf("decoded %d of %d records", i+1, len(index)))
			}
		}
	}

	if glog.V(2) {
		glog.Infof("decoded %d %v records, %d vertices", len(shapes), d.ShapeType, v.Len())
	}
	return shapes, v, nil
}

func (d *Decoder) readRecord(r *binio.Reader, codec recordCodec, i int, entry IndexEntry, size int64, v *Vertices, s *ShapeRange) error {
	number := i + 1
	if entry.Offset < HeaderSize {
		return &ErrInvalidRecord{Record: number, Reason: fmt.Sprintf("offset %d inside the file header", entry.Offset)}
	}
	if err := r.Seek(entry.Offset); err != nil {
		return fmt.Errorf("seek record %d: %w", number, err)
	}

	h, err := ReadRecordHeader(r)
	if err != nil {
		return recordReadError(number, err)
	}
	if h.ContentLength != entry.ContentLength {
		glog.Warningf("record %d: content length %d words, index says %d",
			number, h.ContentLength, entry.ContentLength)
	}
	if h.ContentLength < 2 {
		return &ErrInvalidRecord{Record: number, Reason: fmt.Sprintf("content length %d words", h.ContentLength)}
	}
	if avail := size - entry.Offset - int64(RecordHeaderWords)*2; int64(h.ContentLength)*2 > avail {
		glog.Warningf("record %d: content length %d words runs past end of file, %d bytes left",
			number, h.ContentLength, avail)
		h.ContentLength = int32(max(avail, 0) / 2)
		if h.ContentLength < 2 {
			return &ErrInvalidRecord{Record: number, Reason: "truncated record"}
		}
	}

	if h.ShapeType == NullShape {
		*s = NullRange(h.Number, v.Len())
		return nil
	}
	if h.ShapeType != d.ShapeType {
		return &ErrShapeTypeMismatch{Record: number, Want: d.ShapeType, Got: h.ShapeType}
	}

	s.ShapeType = h.ShapeType
	s.RecordNumber = h.Number
	s.ContentLength = h.ContentLength
	if err := codec.decode(r, h, v, s); err != nil {
		return recordReadError(number, err)
	}
	return nil
}

// recordReadError turns a short read inside a record into a format error.
func recordReadError(number int, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &ErrInvalidRecord{Record: number, Reason: "truncated record"}
	}
	if errors.Is(err, ErrFormat) {
		return err
	}
	return fmt.Errorf("read record %d: %w", number, err)
}

// arenaCapacity sums the point capacity the index declares, bounded by
// MaxPoints and by the 16 bytes each XY pair needs in a file of size bytes.
func (d *Decoder) arenaCapacity(index []IndexEntry, size int64) int {
	limit := int(size / 16)
	if d.MaxPoints > 0 {
		limit = min(limit, d.MaxPoints)
	}
	total := 0
	for _, e := range index {
		total += PointCapacity(d.ShapeType, e.ContentLength)
		if total >= limit {
			return limit
		}
	}
	return total
}

package shapefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/beetlebugorg/shp/pkg/extent"
)

const (
	// FileCode is the magic number at offset 0 of every .shp and .shx file.
	FileCode int32 = 9994
	// Version is the only version ever published.
	Version int32 = 1000

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = 100
	// HeaderWords is the header length in 16-bit words.
	HeaderWords int32 = HeaderSize / 2
	// RecordHeaderWords is the length of a record header in 16-bit words.
	RecordHeaderWords int32 = 4
	// IndexRecordSize is the length of one .shx entry in bytes.
	IndexRecordSize = 8
)

// Header is the fixed 100-byte header shared by the .shp and .shx files.
// The two differ only in FileLength.
type Header struct {
	FileCode   int32
	FileLength int32 // total file length in 16-bit words, header included
	Version    int32
	ShapeType  ShapeType
	Extent     extent.Extent // X/Y box plus Z and M ranges
}

// NewHeader returns a header with the standard file code and version.
func NewHeader(shapeType ShapeType, fileLengthWords int32, ext extent.Extent) Header {
	return Header{
		FileCode:   FileCode,
		FileLength: fileLengthWords,
		Version:    Version,
		ShapeType:  shapeType,
		Extent:     ext,
	}
}

// ParseHeader decodes the first 100 bytes of a .shp or .shx file.
//
// Layout:
//
//	0      FileCode    int32  big-endian (9994)
//	4..23  unused
//	24     FileLength  int32  big-endian, 16-bit words
//	28     Version     int32  little-endian (1000)
//	32     ShapeType   int32  little-endian
//	36..92 Xmin Ymin Xmax Ymax Zmin Zmax Mmin Mmax, little-endian doubles
//
// Values are kept exactly as stored so that Encode reproduces the same bytes.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &ErrFileTooShort{Size: int64(len(b))}
	}

	h := Header{
		FileCode:   int32(binary.BigEndian.Uint32(b[0:4])),
		FileLength: int32(binary.BigEndian.Uint32(b[24:28])),
		Version:    int32(binary.LittleEndian.Uint32(b[28:32])),
		ShapeType:  ShapeType(int32(binary.LittleEndian.Uint32(b[32:36]))),
	}
	if h.FileCode != FileCode {
		return Header{}, &ErrInvalidFileCode{Code: h.FileCode}
	}
	if !h.ShapeType.Supported() {
		return Header{}, &ErrUnsupportedShapeType{Type: h.ShapeType}
	}

	f := func(off int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
	}
	h.Extent = extent.Extent{
		MinX: f(36), MinY: f(44), MaxX: f(52), MaxY: f(60),
		MinZ: f(68), MaxZ: f(76), MinM: f(84), MaxM: f(92),
	}
	return h, nil
}

// ReadHeader reads and decodes a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Header{}, &ErrFileTooShort{Size: int64(n)}
	}
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return ParseHeader(buf[:])
}

// Encode serializes the header. NaN ordinates (unset ranges) are written as 0.
func (h Header) Encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(h.FileCode))
	binary.BigEndian.PutUint32(b[24:28], uint32(h.FileLength))
	binary.LittleEndian.PutUint32(b[28:32], uint32(h.Version))
	binary.LittleEndian.PutUint32(b[32:36], uint32(h.ShapeType))

	put := func(off int, v float64) {
		if math.IsNaN(v) {
			v = 0
		}
		binary.LittleEndian.PutUint64(b[off:off+8], math.Float64bits(v))
	}
	e := h.Extent
	put(36, e.MinX)
	put(44, e.MinY)
	put(52, e.MaxX)
	put(60, e.MaxY)
	put(68, e.MinZ)
	put(76, e.MaxZ)
	put(84, e.MinM)
	put(92, e.MaxM)
	return b
}

// WriteTo writes the encoded header to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	b := h.Encode()
	n, err := w.Write(b[:])
	return int64(n), err
}

// FileSize returns the declared file length in bytes.
func (h Header) FileSize() int64 {
	return int64(h.FileLength) * 2
}

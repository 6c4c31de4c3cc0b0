// Package binio provides buffered readers and writers for the fixed-width
// integers and doubles that make up shapefile records.
//
// Shapefiles mix byte orders inside a single record (big-endian record headers,
// little-endian payloads), so every primitive takes its binary.ByteOrder as a
// parameter instead of assuming one.
package binio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// DefaultBufferSize is large enough to hold several typical polygon records.
const DefaultBufferSize = 64 * 1024

// Reader reads primitives from a seekable source through a buffer.
//
// Reader is not safe for concurrent use and assumes exclusive access to the
// underlying source for its whole lifetime.
type Reader struct {
	src     io.ReadSeeker
	br      *bufio.Reader
	pos     int64
	scratch [8]byte
	chunk   []byte
}

// NewReader creates a buffered reader positioned at the current offset of src.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	return NewReaderSize(src, DefaultBufferSize)
}

// NewReaderSize creates a buffered reader with a specific buffer size.
func NewReaderSize(src io.ReadSeeker, size int) (*Reader, error) {
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("query position: %w", err)
	}
	return &Reader{
		src: src,
		br:  bufio.NewReaderSize(src, size),
		pos: pos,
	}, nil
}

// Position returns the absolute byte offset of the next read.
func (r *Reader) Position() int64 {
	return r.pos
}

// Seek moves to an absolute byte offset. Seeking to the current position keeps
// the buffer; forward seeks that land inside the buffer are served by discarding.
func (r *Reader) Seek(offset int64) error {
	if offset == r.pos {
		return nil
	}
	if delta := offset - r.pos; delta > 0 && delta <= int64(r.br.Buffered()) {
		_, err := r.br.Discard(int(delta))
		r.pos += delta
		return err
	}
	if _, err := r.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	r.br.Reset(r.src)
	r.pos = offset
	return nil
}

// Size returns the length of the underlying source. The source offset is
// restored afterwards so buffered data stays valid.
func (r *Reader) Size() (int64, error) {
	cur, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("query position: %w", err)
	}
	end, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := r.src.Seek(cur, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", cur, err)
	}
	return end, nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) error {
	if n <= 0 {
		return nil
	}
	discarded, err := r.br.Discard(n)
	r.pos += int64(discarded)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadFull fills p completely.
func (r *Reader) ReadFull(p []byte) error {
	n, err := io.ReadFull(r.br, p)
	r.pos += int64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadInt32 reads a 4-byte signed integer in the given byte order.
func (r *Reader) ReadInt32(order binary.ByteOrder) (int32, error) {
	if err := r.ReadFull(r.scratch[:4]); err != nil {
		return 0, err
	}
	return int32(order.Uint32(r.scratch[:4])), nil
}

// ReadFloat64 reads an IEEE-754 double in the given byte order.
func (r *Reader) ReadFloat64(order binary.ByteOrder) (float64, error) {
	if err := r.ReadFull(r.scratch[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(order.Uint64(r.scratch[:8])), nil
}

// ReadInt32BE reads a big-endian int32 (record headers, index entries).
func (r *Reader) ReadInt32BE() (int32, error) { return r.ReadInt32(binary.BigEndian) }

// ReadInt32LE reads a little-endian int32 (shape types, counts, part offsets).
func (r *Reader) ReadInt32LE() (int32, error) { return r.ReadInt32(binary.LittleEndian) }

// ReadFloat64LE reads a little-endian double (all coordinates).
func (r *Reader) ReadFloat64LE() (float64, error) { return r.ReadFloat64(binary.LittleEndian) }

// ReadInt32s fills dst with consecutive int32 values.
func (r *Reader) ReadInt32s(dst []int32, order binary.ByteOrder) error {
	buf := r.buffer(len(dst) * 4)
	if err := r.ReadFull(buf); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int32(order.Uint32(buf[i*4:]))
	}
	return nil
}

// ReadFloat64s fills dst with consecutive doubles using a single buffered read.
func (r *Reader) ReadFloat64s(dst []float64, order binary.ByteOrder) error {
	buf := r.buffer(len(dst) * 8)
	if err := r.ReadFull(buf); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float64frombits(order.Uint64(buf[i*8:]))
	}
	return nil
}

// buffer returns a reusable scratch slice of length n.
func (r *Reader) buffer(n int) []byte {
	if cap(r.chunk) < n {
		r.chunk = make([]byte, n)
	}
	return r.chunk[:n]
}

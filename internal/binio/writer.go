package binio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// Writer writes primitives through a buffer and counts the bytes written.
type Writer struct {
	bw      *bufio.Writer
	pos     int64
	scratch [8]byte
	chunk   []byte
}

// NewWriter creates a buffered writer. Position starts at zero.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, DefaultBufferSize)}
}

// Position returns the number of bytes written so far.
func (w *Writer) Position() int64 {
	return w.pos
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// WriteBytes writes p unchanged.
func (w *Writer) WriteBytes(p []byte) error {
	n, err := w.bw.Write(p)
	w.pos += int64(n)
	return err
}

// WriteInt32 writes a 4-byte signed integer in the given byte order.
func (w *Writer) WriteInt32(v int32, order binary.ByteOrder) error {
	order.PutUint32(w.scratch[:4], uint32(v))
	return w.WriteBytes(w.scratch[:4])
}

// WriteFloat64 writes an IEEE-754 double in the given byte order.
func (w *Writer) WriteFloat64(v float64, order binary.ByteOrder) error {
	order.PutUint64(w.scratch[:8], math.Float64bits(v))
	return w.WriteBytes(w.scratch[:8])
}

// WriteInt32s writes consecutive int32 values.
func (w *Writer) WriteInt32s(src []int32, order binary.ByteOrder) error {
	buf := w.buffer(len(src) * 4)
	for i, v := range src {
		order.PutUint32(buf[i*4:], uint32(v))
	}
	return w.WriteBytes(buf)
}

// WriteFloat64s writes consecutive doubles as one buffered write.
func (w *Writer) WriteFloat64s(src []float64, order binary.ByteOrder) error {
	buf := w.buffer(len(src) * 8)
	for i, v := range src {
		order.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return w.WriteBytes(buf)
}

func (w *Writer) buffer(n int) []byte {
	if cap(w.chunk) < n {
		w.chunk = make([]byte, n)
	}
	return w.chunk[:n]
}

package shapefile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// IndexEntry locates one record of the .shp file.
type IndexEntry struct {
	Offset        int64 // byte offset of the record header in the .shp file
	ContentLength int32 // record content length in 16-bit words, record header excluded
}

// RecordSize returns the full record length in bytes, record header included.
func (e IndexEntry) RecordSize() int64 {
	return int64(e.ContentLength+RecordHeaderWords) * 2
}

// ReadIndex reads a complete .shx file: header first, then one 8-byte entry per
// record. The entry count comes from the header FileLength; a trailing partial
// entry is ignored.
func ReadIndex(r io.Reader) (Header, []IndexEntry, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return Header{}, nil, err
	}

	count := (h.FileSize() - HeaderSize) / IndexRecordSize
	if count < 0 {
		count = 0
	}
	entries := make([]IndexEntry, 0, count)

	var buf [IndexRecordSize]byte
	for i := int64(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Header{}, nil, fmt.Errorf("read index entry %d: %w", i, err)
		}
		entries = append(entries, IndexEntry{
			Offset:        int64(int32(binary.BigEndian.Uint32(buf[0:4]))) * 2,
			ContentLength: int32(binary.BigEndian.Uint32(buf[4:8])),
		})
	}
	return h, entries, nil
}

// ReadIndexFile opens and reads a .shx file.
func ReadIndexFile(path string) (Header, []IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Header{}, nil, &ErrMissingFile{Path: path, Err: err}
		}
		return Header{}, nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	return ReadIndex(f)
}

// BuildIndex computes record offsets from content lengths. The first record
// starts right after the 50-word header and each following record starts after
// the previous record's content plus its 4-word record header.
func BuildIndex(contentLengths []int32) []IndexEntry {
	entries := make([]IndexEntry, len(contentLengths))
	offset := HeaderWords
	for i, cl := range contentLengths {
		entries[i] = IndexEntry{Offset: int64(offset) * 2, ContentLength: cl}
		offset += RecordHeaderWords + cl
	}
	return entries
}

// IndexFileLength returns the .shx length in words for n records.
func IndexFileLength(n int) int32 {
	return HeaderWords + int32(n)*IndexRecordSize/2
}

// WriteIndex writes a .shx file. The header FileLength is recomputed from the
// number of entries; every other header field is written as given.
func WriteIndex(w io.Writer, h Header, entries []IndexEntry) error {
	bw := bufio.NewWriter(w)

	h.FileLength = IndexFileLength(len(entries))
	if _, err := h.WriteTo(bw); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}

	var buf [IndexRecordSize]byte
	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[0:4], uint32(int32(e.Offset/2)))
		binary.BigEndian.PutUint32(buf[4:8], uint32(e.ContentLength))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	return bw.Flush()
}

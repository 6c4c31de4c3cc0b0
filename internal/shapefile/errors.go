package shapefile

import (
	"errors"
	"fmt"
)

// ErrFormat matches every structural format error through errors.Is.
var ErrFormat = errors.New("shapefile: invalid format")

// ErrFileTooShort indicates a file smaller than the fixed 100-byte header.
type ErrFileTooShort struct {
	Size int64
}

func (e *ErrFileTooShort) Error() string {
	return fmt.Sprintf("file too short: %d bytes, header needs %d", e.Size, HeaderSize)
}

func (e *ErrFileTooShort) Is(target error) bool { return target == ErrFormat }

// ErrInvalidFileCode indicates the header does not start with 9994.
type ErrInvalidFileCode struct {
	Code int32
}

func (e *ErrInvalidFileCode) Error() string {
	return fmt.Sprintf("invalid file code %d (want %d)", e.Code, FileCode)
}

func (e *ErrInvalidFileCode) Is(target error) bool { return target == ErrFormat }

// ErrUnsupportedShapeType indicates a header shape type the codec cannot handle.
type ErrUnsupportedShapeType struct {
	Type ShapeType
}

func (e *ErrUnsupportedShapeType) Error() string {
	return fmt.Sprintf("unsupported shape type: %v", e.Type)
}

func (e *ErrUnsupportedShapeType) Is(target error) bool { return target == ErrFormat }

// ErrShapeTypeMismatch indicates a non-null record whose tag differs from the file's.
type ErrShapeTypeMismatch struct {
	Record int
	Want   ShapeType
	Got    ShapeType
}

func (e *ErrShapeTypeMismatch) Error() string {
	return fmt.Sprintf("record %d: shape type %v does not match file type %v",
		e.Record, e.Got, e.Want)
}

func (e *ErrShapeTypeMismatch) Is(target error) bool { return target == ErrFormat }

// ErrInvalidRecord indicates a record whose counts or part offsets cannot be
// represented inside its declared content length.
type ErrInvalidRecord struct {
	Record int
	Reason string
}

func (e *ErrInvalidRecord) Error() string {
	return fmt.Sprintf("invalid record %d: %s", e.Record, e.Reason)
}

func (e *ErrInvalidRecord) Is(target error) bool { return target == ErrFormat }

// ErrMissingFile indicates a required member of the .shp/.shx pair is absent.
type ErrMissingFile struct {
	Path string
	Err  error
}

func (e *ErrMissingFile) Error() string {
	return fmt.Sprintf("missing file %s: %v", e.Path, e.Err)
}

func (e *ErrMissingFile) Unwrap() error { return e.Err }

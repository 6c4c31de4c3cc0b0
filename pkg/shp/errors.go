package shp

import (
	"errors"

	"github.com/beetlebugorg/shp/internal/shapefile"
)

var (
	// ErrExists is returned by SaveAs when the target exists and overwrite is false.
	ErrExists = errors.New("shp: target file exists")

	// ErrLocked is returned when another process holds a conflicting lock on
	// the file and the lock timeout expires.
	ErrLocked = errors.New("shp: file is locked")

	// ErrIndexOutOfRange is returned for shape or vertex indexes outside the set.
	ErrIndexOutOfRange = errors.New("shp: index out of range")

	// ErrInvalidShape is returned when a shape does not fit the set's geometry kind.
	ErrInvalidShape = errors.New("shp: invalid shape")

	// ErrNoPath is returned by Save on a set that was never opened or saved.
	ErrNoPath = errors.New("shp: feature set has no file path")

	// ErrFormat matches every structural format error through errors.Is.
	ErrFormat = shapefile.ErrFormat
)

// Format error types, usable with errors.As.
type (
	ErrFileTooShort         = shapefile.ErrFileTooShort
	ErrInvalidFileCode      = shapefile.ErrInvalidFileCode
	ErrUnsupportedShapeType = shapefile.ErrUnsupportedShapeType
	ErrShapeTypeMismatch    = shapefile.ErrShapeTypeMismatch
	ErrInvalidRecord        = shapefile.ErrInvalidRecord
	ErrMissingFile          = shapefile.ErrMissingFile
)

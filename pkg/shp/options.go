package shp

import (
	"time"

	"github.com/beetlebugorg/shp/pkg/spatial"
)

// OpenOptions configures Open and New.
type OpenOptions struct {
	// Index selects the spatial index backend. Empty means quadtree.
	Index spatial.Backend

	// Quadtree tunes the quadtree backend.
	Quadtree spatial.QuadtreeOptions

	// CacheSize is the number of materialised features kept in an LRU cache.
	// Zero disables caching.
	CacheSize int

	// Progress receives stage progress during Open and Save.
	Progress ProgressHandler

	// Attributes supplies the attribute row for each feature. Optional.
	Attributes AttributeProvider

	// LockTimeout bounds how long Open and Save wait for a conflicting
	// advisory lock held by another process. Zero tries once.
	LockTimeout time.Duration

	// BufferSize is the read buffer used for the .shp fill pass.
	BufferSize int
}

// DefaultOpenOptions returns options with a quadtree index and a small
// feature cache.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		Index:       spatial.BackendQuadtree,
		Quadtree:    spatial.DefaultQuadtreeOptions(),
		CacheSize:   256,
		LockTimeout: 5 * time.Second,
		BufferSize:  64 * 1024,
	}
}

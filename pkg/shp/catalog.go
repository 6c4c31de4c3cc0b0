package shp

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/beetlebugorg/shp/pkg/spatial"
)

// Catalog provides spatial queries over a collection of shapefiles.
//
// It keeps lightweight metadata for each file (path, type, record count,
// extent) in an R-tree so that only files intersecting a region of interest
// need to be worked with.
//
// Example:
//
//	cat, errs := shp.BuildCatalogFromDir(ctx, "/data/osm", shp.DefaultLoadOptions())
//	for _, e := range cat.Query(extent.NewXY(-87, 24, -80, 31)) {
//	    fmt.Println(e.Path, e.Records)
//	}
type Catalog struct {
	entries []CatalogEntry
	rtree   *spatial.RTree
}

// CatalogEntry describes one indexed shapefile.
type CatalogEntry struct {
	Path       string
	ShapeType  ShapeType
	Records    int
	Vertices   int
	Extent     extent.Extent
	Projection string
}

// FindShapefiles walks root and returns every .shp file, sorted.
func FindShapefiles(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".shp") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	slices.Sort(found)
	return found, nil
}

// BuildCatalogFromDir opens every shapefile under root and catalogs it.
// Files that fail to open are reported in the returned errors.
func BuildCatalogFromDir(ctx context.Context, root string, opts LoadOptions) (*Catalog, []error) {
	paths, err := FindShapefiles(root)
	if err != nil {
		return nil, []error{err}
	}
	if len(paths) == 0 {
		return nil, []error{fmt.Errorf("no shapefiles found in %s", root)}
	}

	// Only metadata is kept, so skip per-feature caching while loading.
	opts.Open.CacheSize = 0
	sets, errs := OpenMany(ctx, paths, opts)
	if len(sets) == 0 {
		return nil, append(errs, fmt.Errorf("no shapefiles could be opened (%d errors)", len(errs)))
	}
	return BuildCatalog(sets), errs
}

// BuildCatalog creates a catalog from opened feature sets.
func BuildCatalog(sets []*FeatureSet) *Catalog {
	c := &Catalog{
		entries: make([]CatalogEntry, len(sets)),
		rtree:   spatial.NewRTree(),
	}
	for i, set := range sets {
		c.entries[i] = CatalogEntry{
			Path:       set.Path(),
			ShapeType:  set.ShapeType(),
			Records:    set.Len(),
			Vertices:   set.Vertices().Len(),
			Extent:     set.Extent(),
			Projection: set.Projection(),
		}
		c.rtree.Insert(c.entries[i].Extent, i)
	}
	return c
}

// Query returns the entries whose extent intersects e, in catalog order.
func (c *Catalog) Query(e extent.Extent) []CatalogEntry {
	ids := c.rtree.Query(e)
	out := make([]CatalogEntry, len(ids))
	for i, id := range ids {
		out[i] = c.entries[id]
	}
	return out
}

// Count returns the number of cataloged files.
func (c *Catalog) Count() int {
	return len(c.entries)
}

// Extent returns the union of all entry extents.
func (c *Catalog) Extent() extent.Extent {
	e := extent.New()
	for _, entry := range c.entries {
		e.ExpandToIncludeExtent(entry.Extent)
	}
	return e
}

// All returns every entry.
func (c *Catalog) All() []CatalogEntry {
	return c.entries
}

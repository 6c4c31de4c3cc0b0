package shp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/beetlebugorg/shp/internal/binio"
	"github.com/beetlebugorg/shp/internal/shapefile"
	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/beetlebugorg/shp/pkg/spatial"
	"github.com/golang/glog"
)

// FeatureSet is the in-memory form of one shapefile.
//
// It owns the header, the .shx index, one ShapeRange per record, the shared
// vertex arena and the spatial index over shape extents. The geometry kind and
// coordinate type are fixed when the set is opened or created.
//
// A FeatureSet is safe for concurrent use: readers run in parallel, edits and
// saves are exclusive.
type FeatureSet struct {
	mu sync.RWMutex

	path       string // .shp path, empty until opened or saved
	header     shapefile.Header // as stored, box included
	extent     extent.Extent    // union of shape extents unless extentStale
	index      []shapefile.IndexEntry
	shapes     []shapefile.ShapeRange
	verts      *shapefile.Vertices
	spatial    spatial.Index
	projection string
	attributes AttributeProvider
	cache      *featureCache
	opts       OpenOptions

	extentStale bool
	dirty       bool
}

// paths returns the .shp, .shx and .prj paths for a shapefile path. The
// extension may be given in either case or omitted.
func paths(path string) (shpPath, shxPath, prjPath string) {
	ext := filepath.Ext(path)
	base := path
	switch ext {
	case ".shp", ".shx", ".prj":
		base = strings.TrimSuffix(path, ext)
		return base + ".shp", base + ".shx", base + ".prj"
	case ".SHP", ".SHX", ".PRJ":
		base = strings.TrimSuffix(path, ext)
		return base + ".SHP", base + ".SHX", base + ".PRJ"
	}
	return base + ".shp", base + ".shx", base + ".prj"
}

// New creates an empty feature set for authoring shapes of type t.
func New(t ShapeType, opts OpenOptions) (*FeatureSet, error) {
	if !t.Supported() {
		return nil, &shapefile.ErrUnsupportedShapeType{Type: t}
	}
	set := &FeatureSet{
		header:     shapefile.NewHeader(t, shapefile.HeaderWords, extent.New()),
		extent:     extent.New(),
		verts:      shapefile.NewVertices(t.CoordinateType(), 0),
		attributes: opts.Attributes,
		cache:      newFeatureCache(opts.CacheSize),
		opts:       opts,
	}
	idx, err := set.newIndex(extent.New())
	if err != nil {
		return nil, err
	}
	set.spatial = idx
	return set, nil
}

// Open reads a shapefile. path may name the .shp, the .shx or the common base.
//
// The .shx index is required. Records are decoded in one pass into the vertex
// arena while a shared advisory lock is held on the .shp.lock sibling, then the
// spatial index is built and the optional .prj is read. Any format error fails
// Open. Extent is computed from the decoded shapes; the stored header box is
// kept only for Header.
func Open(ctx context.Context, path string, opts OpenOptions) (*FeatureSet, error) {
	shpPath, shxPath, prjPath := paths(path)

	info, err := os.Stat(shpPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &shapefile.ErrMissingFile{Path: shpPath, Err: err}
		}
		return nil, fmt.Errorf("stat %s: %w", shpPath, err)
	}

	lock, err := acquireLock(ctx, shpPath, false, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer releaseLock(lock)

	report(opts.Progress, StageIndex, 0, "reading "+filepath.Base(shxPath))
	_, index, err := shapefile.ReadIndexFile(shxPath)
	if err != nil {
		return nil, err
	}
	report(opts.Progress, StageIndex, 100, fmt.Sprintf("%d records", len(index)))

	f, err := os.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", shpPath, err)
	}
	defer f.Close()

	header, err := shapefile.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shpPath, err)
	}
	if header.FileSize() != info.Size() {
		glog.Warningf("%s: header declares %d bytes, file has %d", shpPath, header.FileSize(), info.Size())
	}

	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = binio.DefaultBufferSize
	}
	r, err := binio.NewReaderSize(f, bufSize)
	if err != nil {
		return nil, err
	}

	dec := shapefile.NewDecoder(header.ShapeType)
	dec.Progress = stageReporter(opts.Progress, StageDecode)
	dec.FileSize = info.Size()
	shapes, verts, err := dec.ReadShapes(ctx, r, index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shpPath, err)
	}

	set := &FeatureSet{
		path:       shpPath,
		header:     header,
		index:      index,
		shapes:     shapes,
		verts:      verts,
		attributes: opts.Attributes,
		cache:      newFeatureCache(opts.CacheSize),
		opts:       opts,
	}
	set.extent = set.unionExtent()
	if !set.extent.IsEmpty() && !header.Extent.Equals(set.extent) {
		glog.Warningf("%s: header box %v disagrees with shape extents %v", shpPath, header.Extent, set.extent)
	}
	if err := set.buildSpatialIndex(ctx); err != nil {
		return nil, err
	}

	prj, err := os.ReadFile(prjPath)
	switch {
	case err == nil:
		set.projection = string(prj)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", prjPath, err)
	}

	if glog.V(1) {
		glog.Infof("opened %s: %d %v records, %d vertices, extent %v",
			shpPath, len(shapes), header.ShapeType, verts.Len(), set.extent)
	}
	return set, nil
}

func (s *FeatureSet) newIndex(bounds extent.Extent) (spatial.Index, error) {
	if s.opts.Index == spatial.BackendRTree {
		return spatial.NewRTree(), nil
	}
	if s.opts.Index != "" && s.opts.Index != spatial.BackendQuadtree {
		return spatial.New(s.opts.Index, bounds)
	}
	return spatial.NewQuadtree(bounds, s.opts.Quadtree), nil
}

// buildSpatialIndex indexes every non-null shape under its position.
func (s *FeatureSet) buildSpatialIndex(ctx context.Context) error {
	idx, err := s.newIndex(s.extent)
	if err != nil {
		return err
	}

	last := -1
	for i := range s.shapes {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !s.shapes[i].IsNull() {
			idx.Insert(s.shapes[i].Extent, i)
		}
		if p := (i + 1) * 100 / len(s.shapes); p != last && p%10 == 0 {
			last = p
			report(s.opts.Progress, StageSpatial, p, fmt.Sprintf("indexed %d of %d shapes", i+1, len(s.shapes)))
		}
	}
	s.spatial = idx
	return nil
}

// unionExtent returns the union of all shape extents.
func (s *FeatureSet) unionExtent() extent.Extent {
	e := extent.New()
	for i := range s.shapes {
		e.ExpandToIncludeExtent(s.shapes[i].Extent)
	}
	return e
}

// Path returns the .shp path, or "" for a set that was never saved.
func (s *FeatureSet) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// ShapeType returns the file's shape type.
func (s *FeatureSet) ShapeType() ShapeType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.ShapeType
}

// Kind returns the geometry family.
func (s *FeatureSet) Kind() Kind {
	return s.ShapeType().Kind()
}

// CoordinateType returns the vertex layout.
func (s *FeatureSet) CoordinateType() CoordinateType {
	return s.ShapeType().CoordinateType()
}

// Len returns the number of records, null records included.
func (s *FeatureSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// Extent returns the union of all shape extents, computed from the vertices.
// The box stored in the file header is not trusted; see Header for it. After
// edits the extent is recomputed on demand.
func (s *FeatureSet) Extent() extent.Extent {
	s.mu.RLock()
	if !s.extentStale {
		defer s.mu.RUnlock()
		return s.extent
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extentStale {
		s.extent = s.unionExtent()
		s.extentStale = false
	}
	return s.extent
}

// Header returns the header exactly as last read or written.
func (s *FeatureSet) Header() Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header
}

// Index returns a copy of the .shx entries as last read or written.
func (s *FeatureSet) Index() []IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.index)
}

// ShapeRange returns the range of shape i.
func (s *FeatureSet) ShapeRange(i int) (ShapeRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.shapes) {
		return ShapeRange{}, fmt.Errorf("shape %d: %w", i, ErrIndexOutOfRange)
	}
	return s.shapes[i], nil
}

// ShapeRanges returns a copy of every shape range.
func (s *FeatureSet) ShapeRanges() []ShapeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.shapes)
}

// Vertices returns the arena. Callers must not modify it and must not hold
// on to it across edits.
func (s *FeatureSet) Vertices() *Vertices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verts
}

// Projection returns the .prj text, or "" when none was found.
func (s *FeatureSet) Projection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projection
}

// SetProjection replaces the text written to the .prj on save.
func (s *FeatureSet) SetProjection(wkt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projection = wkt
	s.dirty = true
}

// SetAttributes replaces the attribute provider and drops cached features.
func (s *FeatureSet) SetAttributes(p AttributeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes = p
	s.cache.Clear()
}

// Dirty reports whether the set has unsaved edits.
func (s *FeatureSet) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// CacheStats returns feature cache metrics.
func (s *FeatureSet) CacheStats() CacheStats {
	return s.cache.Stats()
}

// GetFeature materialises shape i with its attribute row. The cost is
// proportional to the shape's vertex count.
func (s *FeatureSet) GetFeature(i int) (*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getFeature(i)
}

// getFeature must be called with s.mu held.
func (s *FeatureSet) getFeature(i int) (*Feature, error) {
	if i < 0 || i >= len(s.shapes) {
		return nil, fmt.Errorf("shape %d: %w", i, ErrIndexOutOfRange)
	}
	return s.cache.Get(i, func() (*Feature, error) {
		f := materialise(i, &s.shapes[i], s.verts)
		if s.attributes != nil {
			row, err := s.attributes.Row(i)
			if err != nil {
				return nil, fmt.Errorf("attributes of shape %d: %w", i, err)
			}
			f.Attributes = row
		}
		return f, nil
	})
}

// Query returns the positions of shapes whose extents intersect e, ascending.
func (s *FeatureSet) Query(e extent.Extent) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spatial.Query(e)
}

// FeaturesInExtent materialises every shape whose extent intersects e.
func (s *FeatureSet) FeaturesInExtent(e extent.Extent) ([]*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.spatial.Query(e)
	out := make([]*Feature, 0, len(ids))
	for _, i := range ids {
		f, err := s.getFeature(i)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// AddShape appends shape and returns its position. A shape without vertices
// becomes a null record. Polygon rings that are not closed are closed.
func (s *FeatureSet) AddShape(shape Shape) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.header.ShapeType
	parts, err := normaliseParts(t.Kind(), shape)
	if err != nil {
		return 0, err
	}

	id := len(s.shapes)
	start := s.verts.Len()
	if len(parts) == 0 {
		s.shapes = append(s.shapes, shapefile.NullRange(int32(id+1), start))
		s.dirty = true
		return id, nil
	}

	r := shapefile.ShapeRange{
		ShapeType:    t,
		RecordNumber: int32(id + 1),
		StartIndex:   start,
	}
	for _, part := range parts {
		r.Parts = append(r.Parts, shapefile.PartRange{PartOffset: r.NumPoints, NumVertices: len(part)})
		for _, p := range part {
			s.verts.Append(p.X, p.Y, p.Z, p.M)
		}
		r.NumPoints += len(part)
	}
	r.NumParts = len(r.Parts)
	r.Extent = s.verts.ComputeExtent(start, r.NumPoints)
	r.ContentLength = shapefile.ContentLength(t, r.NumParts, r.NumPoints)

	s.shapes = append(s.shapes, r)
	s.spatial.Insert(r.Extent, id)
	if !s.extentStale {
		s.extent.ExpandToIncludeExtent(r.Extent)
	}
	s.dirty = true
	return id, nil
}

// normaliseParts checks shape against the geometry kind and returns the parts
// to store.
func normaliseParts(k Kind, shape Shape) ([][]Vertex, error) {
	if shape.IsNull() {
		return nil, nil
	}
	switch k {
	case shapefile.KindPoint:
		if shape.NumPoints() != 1 {
			return nil, fmt.Errorf("%w: point shape with %d vertices", ErrInvalidShape, shape.NumPoints())
		}
		for _, p := range shape.Parts {
			if len(p) == 1 {
				return [][]Vertex{p}, nil
			}
		}
	case shapefile.KindMultiPoint:
		var all []Vertex
		for _, p := range shape.Parts {
			all = append(all, p...)
		}
		return [][]Vertex{all}, nil
	case shapefile.KindPolyLine:
		for i, p := range shape.Parts {
			if len(p) < 2 {
				return nil, fmt.Errorf("%w: part %d has %d vertices, need 2", ErrInvalidShape, i, len(p))
			}
		}
		return shape.Parts, nil
	case shapefile.KindPolygon:
		parts := make([][]Vertex, len(shape.Parts))
		for i, p := range shape.Parts {
			if len(p) > 0 && (p[0].X != p[len(p)-1].X || p[0].Y != p[len(p)-1].Y) {
				p = append(slices.Clone(p), p[0])
			}
			if len(p) < 4 {
				return nil, fmt.Errorf("%w: ring %d has %d vertices, need 4", ErrInvalidShape, i, len(p))
			}
			parts[i] = p
		}
		return parts, nil
	}
	return nil, fmt.Errorf("%w: kind %v", ErrInvalidShape, k)
}

// SetVertex overwrites one vertex of shape i in place. The shape's extent and
// spatial index entry are refreshed.
func (s *FeatureSet) SetVertex(i, vertex int, v Vertex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.shapes) {
		return fmt.Errorf("shape %d: %w", i, ErrIndexOutOfRange)
	}
	r := &s.shapes[i]
	if vertex < 0 || vertex >= r.NumPoints {
		return fmt.Errorf("shape %d vertex %d: %w", i, vertex, ErrIndexOutOfRange)
	}

	s.verts.Set(r.StartIndex+vertex, v.X, v.Y, v.Z, v.M)

	old := r.Extent
	r.Extent = s.verts.ComputeExtent(r.StartIndex, r.NumPoints)
	if !s.spatial.Remove(old, i) {
		glog.Warningf("shape %d missing from spatial index under %v", i, old)
	}
	s.spatial.Insert(r.Extent, i)

	s.cache.Remove(i)
	s.extentStale = true
	s.dirty = true
	return nil
}

// RemoveShape removes shape i.
//
// Without compaction the record stays as a null shape, so every position and
// index id is unchanged. With compaction the record is deleted: later shapes
// move down one position, the spatial index is renumbered to match, and a
// RowRemover attribute provider drops the row.
func (s *FeatureSet) RemoveShape(i int, compact bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.shapes) {
		return fmt.Errorf("shape %d: %w", i, ErrIndexOutOfRange)
	}
	r := s.shapes[i]

	if !r.IsNull() && !s.spatial.Remove(r.Extent, i) {
		glog.Warningf("shape %d missing from spatial index under %v", i, r.Extent)
	}
	s.verts.Remove(r.StartIndex, r.NumPoints)
	for j := i + 1; j < len(s.shapes); j++ {
		s.shapes[j].StartIndex -= r.NumPoints
	}

	if compact {
		s.shapes = slices.Delete(s.shapes, i, i+1)
		s.spatial.Renumber(i)
		s.cache.Clear()
		if rr, ok := s.attributes.(RowRemover); ok {
			if err := rr.RemoveRow(i); err != nil {
				return fmt.Errorf("remove attribute row %d: %w", i, err)
			}
		}
	} else {
		s.shapes[i] = shapefile.NullRange(r.RecordNumber, r.StartIndex)
		s.cache.Remove(i)
	}

	s.extentStale = true
	s.dirty = true
	return nil
}

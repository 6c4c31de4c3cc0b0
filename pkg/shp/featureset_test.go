package shp

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/beetlebugorg/shp/pkg/spatial"
	"github.com/gofrs/flock"
	"github.com/paulmach/orb"
)

// square returns a closed clockwise ring.
func square(x, y, size float64) []Vertex {
	return []Vertex{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

func testOptions(backend spatial.Backend) OpenOptions {
	opts := DefaultOpenOptions()
	opts.Index = backend
	opts.LockTimeout = 100 * time.Millisecond
	return opts
}

// newPolygonSet builds three squares: two overlapping y in [0,10] and one at
// (40,40).
func newPolygonSet(t *testing.T, backend spatial.Backend) *FeatureSet {
	t.Helper()
	set, err := New(Polygon, testOptions(backend))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, origin := range [][2]float64{{0, 0}, {20, 0}, {40, 40}} {
		if _, err := set.AddShape(Shape{Parts: [][]Vertex{square(origin[0], origin[1], 10)}}); err != nil {
			t.Fatalf("AddShape failed: %v", err)
		}
	}
	return set
}

// writeSet saves a polygon set offset by dx,dy and returns its path.
func writeSet(t *testing.T, dir, name string, dx, dy float64) string {
	t.Helper()
	set, err := New(Polygon, testOptions(spatial.BackendQuadtree))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := set.AddShape(Shape{Parts: [][]Vertex{square(dx, dy, 1)}}); err != nil {
		t.Fatalf("AddShape failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := set.SaveAs(context.Background(), path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestSaveOpenRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		st    ShapeType
		shape Shape
	}{
		{"Point", Point, Shape{Parts: [][]Vertex{{{X: 1, Y: 2}}}}},
		{"PointZ", PointZ, Shape{Parts: [][]Vertex{{{X: 1, Y: 2, Z: 3, M: 4}}}}},
		{"MultiPointM", MultiPointM, Shape{Parts: [][]Vertex{{{X: 1, Y: 2, M: 5}, {X: 3, Y: 4, M: 6}}}}},
		{"PolyLineM", PolyLineM, Shape{Parts: [][]Vertex{
			{{X: 0, Y: 0, M: 1}, {X: 5, Y: 5, M: 2}},
			{{X: 6, Y: 6, M: 3}, {X: 9, Y: 6, M: 4}, {X: 9, Y: 9, M: 5}},
		}}},
		{"PolygonZ", PolygonZ, Shape{Parts: [][]Vertex{{
			{X: 0, Y: 0, Z: 1}, {X: 0, Y: 4, Z: 2}, {X: 4, Y: 4, Z: 3}, {X: 4, Y: 0, Z: 4}, {X: 0, Y: 0, Z: 1},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			set, err := New(tt.st, testOptions(spatial.BackendQuadtree))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if _, err := set.AddShape(tt.shape); err != nil {
				t.Fatalf("AddShape failed: %v", err)
			}
			if _, err := set.AddShape(Shape{}); err != nil {
				t.Fatalf("AddShape(null) failed: %v", err)
			}
			if _, err := set.AddShape(tt.shape); err != nil {
				t.Fatalf("AddShape failed: %v", err)
			}

			path := filepath.Join(t.TempDir(), "data.shp")
			if err := set.SaveAs(ctx, path, false); err != nil {
				t.Fatalf("SaveAs failed: %v", err)
			}
			if set.Dirty() {
				t.Error("Expected clean set after save")
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if got := set.Header().FileSize(); got != info.Size() {
				t.Errorf("Header declares %d bytes, file has %d", got, info.Size())
			}

			got, err := Open(ctx, path, testOptions(spatial.BackendQuadtree))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if got.ShapeType() != tt.st {
				t.Errorf("ShapeType = %v, want %v", got.ShapeType(), tt.st)
			}
			if got.Len() != 3 {
				t.Fatalf("Len = %d, want 3", got.Len())
			}
			if !got.Extent().Equals(set.Extent()) {
				t.Errorf("Extent = %v, want %v", got.Extent(), set.Extent())
			}
			if !reflect.DeepEqual(got.Vertices().XY, set.Vertices().XY) {
				t.Errorf("XY = %v, want %v", got.Vertices().XY, set.Vertices().XY)
			}
			if !reflect.DeepEqual(got.Vertices().Z, set.Vertices().Z) {
				t.Errorf("Z = %v, want %v", got.Vertices().Z, set.Vertices().Z)
			}
			if !reflect.DeepEqual(got.Vertices().M, set.Vertices().M) {
				t.Errorf("M = %v, want %v", got.Vertices().M, set.Vertices().M)
			}

			null, err := got.GetFeature(1)
			if err != nil {
				t.Fatalf("GetFeature(1) failed: %v", err)
			}
			if !null.IsNull() {
				t.Errorf("Expected record 1 to be null, got %v", null.Geometry)
			}

			ranges := got.ShapeRanges()
			if ranges[2].StartIndex != ranges[0].NumPoints {
				t.Errorf("Shape 2 starts at %d, want %d", ranges[2].StartIndex, ranges[0].NumPoints)
			}
		})
	}
}

func TestGetFeatureGeometry(t *testing.T) {
	tests := []struct {
		name  string
		st    ShapeType
		shape Shape
		want  orb.Geometry
	}{
		{
			name:  "point",
			st:    Point,
			shape: ShapeFromPoint(orb.Point{3, 4}),
			want:  orb.Point{3, 4},
		},
		{
			name:  "multipoint",
			st:    MultiPoint,
			shape: Shape{Parts: [][]Vertex{{{X: 1, Y: 1}}, {{X: 2, Y: 2}}}},
			want:  orb.MultiPoint{{1, 1}, {2, 2}},
		},
		{
			name:  "single line",
			st:    PolyLine,
			shape: Shape{Parts: [][]Vertex{{{X: 0, Y: 0}, {X: 1, Y: 1}}}},
			want:  orb.LineString{{0, 0}, {1, 1}},
		},
		{
			name: "multi line",
			st:   PolyLine,
			shape: Shape{Parts: [][]Vertex{
				{{X: 0, Y: 0}, {X: 1, Y: 1}},
				{{X: 5, Y: 5}, {X: 6, Y: 5}},
			}},
			want: orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 5}}},
		},
		{
			name: "polygon with hole",
			st:   Polygon,
			shape: Shape{Parts: [][]Vertex{
				square(0, 0, 10),
				{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}},
			}},
			want: orb.Polygon{
				{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
				{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
			},
		},
		{
			name: "two polygons",
			st:   Polygon,
			shape: Shape{Parts: [][]Vertex{
				square(0, 0, 1),
				square(5, 5, 1),
			}},
			want: orb.MultiPolygon{
				{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}},
				{{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := New(tt.st, DefaultOpenOptions())
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			id, err := set.AddShape(tt.shape)
			if err != nil {
				t.Fatalf("AddShape failed: %v", err)
			}
			f, err := set.GetFeature(id)
			if err != nil {
				t.Fatalf("GetFeature failed: %v", err)
			}
			if !orb.Equal(f.Geometry, tt.want) {
				t.Errorf("Geometry = %v, want %v", f.Geometry, tt.want)
			}
			if f.NumPoints() != tt.shape.NumPoints() {
				t.Errorf("NumPoints = %d, want %d", f.NumPoints(), tt.shape.NumPoints())
			}
		})
	}
}

func TestGetFeatureOutOfRange(t *testing.T) {
	set := newPolygonSet(t, spatial.BackendQuadtree)
	for _, i := range []int{-1, 3} {
		if _, err := set.GetFeature(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("GetFeature(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestFeatureZM(t *testing.T) {
	set, err := New(PolyLineZ, DefaultOpenOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, err := set.AddShape(Shape{Parts: [][]Vertex{{
		{X: 0, Y: 0, Z: 10, M: 1},
		{X: 1, Y: 0, Z: 20, M: MeasureNoData},
	}}})
	if err != nil {
		t.Fatalf("AddShape failed: %v", err)
	}
	f, err := set.GetFeature(id)
	if err != nil {
		t.Fatalf("GetFeature failed: %v", err)
	}
	if !reflect.DeepEqual(f.Z, []float64{10, 20}) {
		t.Errorf("Z = %v", f.Z)
	}
	if f.M[0] != 1 || !IsNoData(f.M[1]) {
		t.Errorf("M = %v", f.M)
	}
	if !f.Extent.HasZ() || f.Extent.MinZ != 10 || f.Extent.MaxZ != 20 {
		t.Errorf("Extent Z = %v", f.Extent)
	}
}

func TestQuery(t *testing.T) {
	for _, backend := range []spatial.Backend{spatial.BackendQuadtree, spatial.BackendRTree} {
		t.Run(string(backend), func(t *testing.T) {
			set := newPolygonSet(t, backend)

			tests := []struct {
				query extent.Extent
				want  []int
			}{
				{extent.NewXY(5, 5, 25, 8), []int{0, 1}},
				{extent.NewXY(45, 45, 46, 46), []int{2}},
				{extent.NewXY(10, 0, 20, 10), []int{0, 1}}, // touches both
				{extent.NewXY(100, 100, 200, 200), nil},
			}
			for _, tt := range tests {
				if got := set.Query(tt.query); !reflect.DeepEqual(got, tt.want) {
					t.Errorf("Query(%v) = %v, want %v", tt.query, got, tt.want)
				}
			}

			features, err := set.FeaturesInExtent(extent.NewXY(5, 5, 25, 8))
			if err != nil {
				t.Fatalf("FeaturesInExtent failed: %v", err)
			}
			if len(features) != 2 || features[0].Index != 0 || features[1].Index != 1 {
				t.Errorf("FeaturesInExtent returned %d features", len(features))
			}
		})
	}
}

func TestQueryAfterOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "squares.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	set, err := Open(ctx, path, testOptions(spatial.BackendRTree))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := set.Query(extent.NewXY(5, 5, 25, 8)); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Query = %v, want [0 1]", got)
	}
}

func TestAddShapeValidation(t *testing.T) {
	tests := []struct {
		name    string
		st      ShapeType
		shape   Shape
		wantErr bool
	}{
		{"point ok", Point, Shape{Parts: [][]Vertex{{{X: 1}}}}, false},
		{"point two vertices", Point, Shape{Parts: [][]Vertex{{{X: 1}, {X: 2}}}}, true},
		{"line one vertex", PolyLine, Shape{Parts: [][]Vertex{{{X: 1}}}}, true},
		{"line ok", PolyLine, Shape{Parts: [][]Vertex{{{X: 1}, {X: 2}}}}, false},
		{"ring too short", Polygon, Shape{Parts: [][]Vertex{{{X: 0}, {X: 1}, {X: 0}}}}, true},
		{"ring closed for caller", Polygon, Shape{Parts: [][]Vertex{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}}}, false},
		{"null", Polygon, Shape{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := New(tt.st, DefaultOpenOptions())
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			_, err = set.AddShape(tt.shape)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidShape) {
					t.Errorf("AddShape error = %v, want ErrInvalidShape", err)
				}
				if set.Len() != 0 {
					t.Errorf("Rejected shape was added")
				}
				return
			}
			if err != nil {
				t.Fatalf("AddShape failed: %v", err)
			}
		})
	}
}

func TestAddShapeClosesRing(t *testing.T) {
	set, err := New(Polygon, DefaultOpenOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, err := set.AddShape(Shape{Parts: [][]Vertex{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}}})
	if err != nil {
		t.Fatalf("AddShape failed: %v", err)
	}
	r, _ := set.ShapeRange(id)
	if r.NumPoints != 4 {
		t.Errorf("NumPoints = %d, want 4", r.NumPoints)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	for _, st := range []ShapeType{NullShape, 31, 99} {
		if _, err := New(st, DefaultOpenOptions()); !errors.Is(err, ErrFormat) {
			t.Errorf("New(%d) error = %v, want ErrFormat", st, err)
		}
	}
}

func TestSetVertex(t *testing.T) {
	for _, backend := range []spatial.Backend{spatial.BackendQuadtree, spatial.BackendRTree} {
		t.Run(string(backend), func(t *testing.T) {
			set := newPolygonSet(t, backend)

			// Warm the cache so the edit has to invalidate it.
			if _, err := set.GetFeature(2); err != nil {
				t.Fatalf("GetFeature failed: %v", err)
			}

			// Stretch the top-right corner of shape 2 out to (80,80).
			if err := set.SetVertex(2, 2, Vertex{X: 80, Y: 80}); err != nil {
				t.Fatalf("SetVertex failed: %v", err)
			}

			if got := set.Query(extent.NewXY(70, 70, 75, 75)); !reflect.DeepEqual(got, []int{2}) {
				t.Errorf("Query after edit = %v, want [2]", got)
			}
			r, _ := set.ShapeRange(2)
			if !r.Extent.Equals(extent.NewXY(40, 40, 80, 80)) {
				t.Errorf("Shape extent = %v", r.Extent)
			}
			if !set.Extent().Equals(extent.NewXY(0, 0, 80, 80)) {
				t.Errorf("Set extent = %v", set.Extent())
			}
			f, _ := set.GetFeature(2)
			ring := f.Geometry.(orb.Polygon)[0]
			if ring[2] != (orb.Point{80, 80}) {
				t.Errorf("Cached feature not refreshed: %v", ring)
			}
			if !set.Dirty() {
				t.Error("Expected dirty set after edit")
			}

			if err := set.SetVertex(2, 5, Vertex{}); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("SetVertex out of range error = %v", err)
			}
		})
	}
}

func TestRemoveShapeLeavesNull(t *testing.T) {
	for _, backend := range []spatial.Backend{spatial.BackendQuadtree, spatial.BackendRTree} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			set := newPolygonSet(t, backend)

			if err := set.RemoveShape(1, false); err != nil {
				t.Fatalf("RemoveShape failed: %v", err)
			}
			if set.Len() != 3 {
				t.Errorf("Len = %d, want 3", set.Len())
			}
			if got := set.Query(extent.NewXY(5, 5, 25, 8)); !reflect.DeepEqual(got, []int{0}) {
				t.Errorf("Query = %v, want [0]", got)
			}
			if got := set.Query(extent.NewXY(45, 45, 46, 46)); !reflect.DeepEqual(got, []int{2}) {
				t.Errorf("Query = %v, want [2]", got)
			}
			if set.Vertices().Len() != 10 {
				t.Errorf("Arena has %d vertices, want 10", set.Vertices().Len())
			}
			r, _ := set.ShapeRange(2)
			if r.StartIndex != 5 {
				t.Errorf("Shape 2 starts at %d, want 5", r.StartIndex)
			}
			if !set.Extent().Equals(extent.NewXY(0, 0, 50, 50)) {
				t.Errorf("Extent = %v", set.Extent())
			}

			path := filepath.Join(t.TempDir(), "soft.shp")
			if err := set.SaveAs(ctx, path, false); err != nil {
				t.Fatalf("SaveAs failed: %v", err)
			}
			got, err := Open(ctx, path, testOptions(backend))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			f, _ := got.GetFeature(1)
			if got.Len() != 3 || !f.IsNull() {
				t.Errorf("Expected 3 records with a null at 1")
			}
		})
	}
}

func TestRemoveShapeCompact(t *testing.T) {
	for _, backend := range []spatial.Backend{spatial.BackendQuadtree, spatial.BackendRTree} {
		t.Run(string(backend), func(t *testing.T) {
			set := newPolygonSet(t, backend)
			attrs := NewMapAttributes(
				map[string]any{"name": "a"},
				map[string]any{"name": "b"},
				map[string]any{"name": "c"},
			)
			set.SetAttributes(attrs)

			if err := set.RemoveShape(1, true); err != nil {
				t.Fatalf("RemoveShape failed: %v", err)
			}
			if set.Len() != 2 {
				t.Errorf("Len = %d, want 2", set.Len())
			}
			if attrs.Len() != 2 {
				t.Errorf("Attribute rows = %d, want 2", attrs.Len())
			}
			if got := set.Query(extent.NewXY(45, 45, 46, 46)); !reflect.DeepEqual(got, []int{1}) {
				t.Errorf("Query = %v, want [1]", got)
			}
			if got := set.Query(extent.NewXY(21, 1, 22, 2)); got != nil {
				t.Errorf("Query over removed shape = %v, want none", got)
			}

			f, err := set.GetFeature(1)
			if err != nil {
				t.Fatalf("GetFeature failed: %v", err)
			}
			if f.Attributes["name"] != "c" {
				t.Errorf("Attributes = %v, want name=c", f.Attributes)
			}
			if !f.Extent.Equals(extent.NewXY(40, 40, 50, 50)) {
				t.Errorf("Extent = %v", f.Extent)
			}
			if err := set.RemoveShape(2, true); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("RemoveShape(2) error = %v", err)
			}
		})
	}
}

func TestSaveAsExists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.shp")
	set := newPolygonSet(t, spatial.BackendQuadtree)
	if err := set.SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if err := set.SaveAs(ctx, path, false); !errors.Is(err, ErrExists) {
		t.Errorf("SaveAs error = %v, want ErrExists", err)
	}
	if err := set.SaveAs(ctx, path, true); err != nil {
		t.Errorf("SaveAs with overwrite failed: %v", err)
	}
}

func TestSaveEditsInPlace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	set, err := Open(ctx, path, testOptions(spatial.BackendQuadtree))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := set.AddShape(Shape{Parts: [][]Vertex{square(100, 100, 5)}}); err != nil {
		t.Fatalf("AddShape failed: %v", err)
	}
	if err := set.RemoveShape(0, true); err != nil {
		t.Fatalf("RemoveShape failed: %v", err)
	}
	if err := set.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Open(ctx, path, testOptions(spatial.BackendQuadtree))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got.Len() != 3 {
		t.Errorf("Len = %d, want 3", got.Len())
	}
	if !got.Extent().Equals(extent.NewXY(20, 0, 105, 105)) {
		t.Errorf("Extent = %v", got.Extent())
	}
	for i, e := range got.Index() {
		if e.Offset < 100 || (i > 0 && e.Offset <= got.Index()[i-1].Offset) {
			t.Errorf("Bad offset %d for record %d", e.Offset, i)
		}
	}

	// No temporary files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Leftover temp file %s", e.Name())
		}
	}
}

func TestSaveWithoutPath(t *testing.T) {
	set := newPolygonSet(t, spatial.BackendQuadtree)
	if err := set.Save(context.Background()); !errors.Is(err, ErrNoPath) {
		t.Errorf("Save error = %v, want ErrNoPath", err)
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	const wkt = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

	set := newPolygonSet(t, spatial.BackendQuadtree)
	set.SetProjection(wkt)
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := set.SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	got, err := Open(ctx, path, testOptions(spatial.BackendQuadtree))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got.Projection() != wkt {
		t.Errorf("Projection = %q", got.Projection())
	}
}

func TestOpenLocked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	held := flock.New(lockPath(path))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock failed: %v", err)
	}
	defer held.Close()

	if _, err := Open(ctx, path, testOptions(spatial.BackendQuadtree)); !errors.Is(err, ErrLocked) {
		t.Errorf("Open error = %v, want ErrLocked", err)
	}

	held.Unlock()
	if _, err := Open(ctx, path, testOptions(spatial.BackendQuadtree)); err != nil {
		t.Errorf("Open after unlock failed: %v", err)
	}
}

func TestLockSurvivesReplacement(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeSet(t, dir, "data.shp", 0, 0)
	other := writeSet(t, dir, "other.shp", 7, 7)

	held, err := acquireLock(ctx, path, true, 0)
	if err != nil {
		t.Fatalf("acquireLock failed: %v", err)
	}

	// Replace the pair the way a save does.
	for _, ext := range []string{".shx", ".shp"} {
		if err := os.Rename(other[:len(other)-4]+ext, path[:len(path)-4]+ext); err != nil {
			t.Fatalf("rename %s failed: %v", ext, err)
		}
	}

	if _, err := Open(ctx, path, testOptions(spatial.BackendQuadtree)); !errors.Is(err, ErrLocked) {
		t.Errorf("Open error = %v, want ErrLocked", err)
	}
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, true); !errors.Is(err, ErrLocked) {
		t.Errorf("SaveAs error = %v, want ErrLocked", err)
	}

	releaseLock(held)
	got, err := Open(ctx, path, testOptions(spatial.BackendQuadtree))
	if err != nil {
		t.Fatalf("Open after unlock failed: %v", err)
	}
	if !got.Extent().Equals(extent.NewXY(7, 7, 8, 8)) {
		t.Errorf("Extent = %v, want the replacement's", got.Extent())
	}
}

func TestOpenRecomputesExtent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	// Widen Xmax in the stored header box.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint64(raw[52:60], math.Float64bits(500))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, backend := range []spatial.Backend{spatial.BackendQuadtree, spatial.BackendRTree} {
		t.Run(string(backend), func(t *testing.T) {
			set, err := Open(ctx, path, testOptions(backend))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			want := extent.NewXY(0, 0, 50, 50)
			if got := set.Extent(); !got.Equals(want) {
				t.Errorf("Extent = %v, want %v", got, want)
			}
			if got := set.Extent(); got.HasZ() || got.HasM() {
				t.Errorf("Extent of a 2D file has Z or M range: %v", got)
			}
			if got := set.Header().Extent.MaxX; got != 500 {
				t.Errorf("Header().Extent.MaxX = %v, want the stored 500", got)
			}
			if got := set.Query(set.Extent()); !reflect.DeepEqual(got, []int{0, 1, 2}) {
				t.Errorf("Query(Extent()) = %v, want [0 1 2]", got)
			}
			if got := set.Query(extent.NewXY(45, 45, 46, 46)); !reflect.DeepEqual(got, []int{2}) {
				t.Errorf("Query = %v, want [2]", got)
			}
		})
	}
}

func TestSaveAsKeepsFilesRenamedBeforeFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// A non-empty directory where the .prj should go makes the last rename fail.
	prjDir := filepath.Join(dir, "data.prj")
	if err := os.Mkdir(prjDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prjDir, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	set := newPolygonSet(t, spatial.BackendQuadtree)
	set.SetProjection(`GEOGCS["WGS 84"]`)
	path := filepath.Join(dir, "data.shp")
	if err := set.SaveAs(ctx, path, false); err == nil {
		t.Fatal("SaveAs succeeded over a .prj directory")
	}

	for _, name := range []string{"data.shp", "data.shx"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing after failed save: %v", name, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Leftover temp file %s", e.Name())
		}
	}

	if err := os.RemoveAll(prjDir); err != nil {
		t.Fatal(err)
	}
	if got, err := Open(ctx, path, testOptions(spatial.BackendQuadtree)); err != nil {
		t.Errorf("Open after failed save: %v", err)
	} else if got.Len() != 3 {
		t.Errorf("Len = %d, want 3", got.Len())
	}
}

func TestOpenMissingFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var missing *ErrMissingFile
	if _, err := Open(ctx, filepath.Join(dir, "nothing.shp"), DefaultOpenOptions()); !errors.As(err, &missing) {
		t.Errorf("Open missing .shp error = %v, want ErrMissingFile", err)
	}

	path := filepath.Join(dir, "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "data.shx")); err != nil {
		t.Fatalf("remove .shx: %v", err)
	}
	if _, err := Open(ctx, path, DefaultOpenOptions()); !errors.As(err, &missing) {
		t.Errorf("Open without .shx error = %v, want ErrMissingFile", err)
	}
}

func TestOpenCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.shp")
	os.WriteFile(path, []byte("not a shapefile"), 0o644)
	os.WriteFile(filepath.Join(dir, "bad.shx"), []byte("not an index"), 0o644)

	if _, err := Open(context.Background(), path, DefaultOpenOptions()); !errors.Is(err, ErrFormat) {
		t.Errorf("Open error = %v, want ErrFormat", err)
	}
}

func TestOpenCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(context.Background(), path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, path, testOptions(spatial.BackendQuadtree)); !errors.Is(err, context.Canceled) {
		t.Errorf("Open error = %v, want context.Canceled", err)
	}
}

func TestOpenProgress(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.shp")
	if err := newPolygonSet(t, spatial.BackendQuadtree).SaveAs(ctx, path, false); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	final := make(map[string]int)
	opts := testOptions(spatial.BackendQuadtree)
	opts.Progress = ProgressFunc(func(stage string, percent int, message string) {
		if percent < final[stage] {
			t.Errorf("%s progress went backwards: %d after %d", stage, percent, final[stage])
		}
		final[stage] = percent
	})
	if _, err := Open(ctx, path, opts); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, stage := range []string{StageIndex, StageDecode, StageSpatial} {
		if final[stage] != 100 {
			t.Errorf("Stage %s ended at %d%%, want 100", stage, final[stage])
		}
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		in            string
		shp, shx, prj string
	}{
		{"a/roads", "a/roads.shp", "a/roads.shx", "a/roads.prj"},
		{"a/roads.shp", "a/roads.shp", "a/roads.shx", "a/roads.prj"},
		{"a/roads.shx", "a/roads.shp", "a/roads.shx", "a/roads.prj"},
		{"A/ROADS.SHP", "A/ROADS.SHP", "A/ROADS.SHX", "A/ROADS.PRJ"},
		{"a/roads.v2", "a/roads.v2.shp", "a/roads.v2.shx", "a/roads.v2.prj"},
	}
	for _, tt := range tests {
		shpPath, shxPath, prjPath := paths(tt.in)
		if shpPath != tt.shp || shxPath != tt.shx || prjPath != tt.prj {
			t.Errorf("paths(%q) = %q, %q, %q", tt.in, shpPath, shxPath, prjPath)
		}
	}
}

// Package shp reads and writes ESRI Shapefile geometry (.shp with its .shx
// index) for Point, MultiPoint, PolyLine and Polygon shapes in their plain, M
// and Z variants.
//
// All vertices of a file live in one flat arena owned by the FeatureSet;
// shapes are offset views into it. Features are materialised on demand as
// orb geometries, so opening a large file costs one pass and one allocation
// per coordinate array rather than one per shape.
//
// # Basic Usage
//
//	fs, err := shp.Open(ctx, "roads.shp", shp.DefaultOpenOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d %v shapes covering %v\n", fs.Len(), fs.ShapeType(), fs.Extent())
//
//	f, err := fs.GetFeature(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	line := f.Geometry.(orb.LineString)
//
// # Spatial Queries
//
// Open builds a spatial index over shape extents (a quadtree by default, or an
// R-tree with OpenOptions.Index = spatial.BackendRTree):
//
//	viewport := extent.NewXY(-71.5, 42.0, -71.0, 42.5)
//	for _, i := range fs.Query(viewport) {
//	    f, _ := fs.GetFeature(i)
//	    render(f.Geometry)
//	}
//
// # Editing
//
// Shapes can be appended, have single vertices moved in place, or be removed.
// Removal either leaves a null record behind (ids stay stable) or compacts the
// shape list (later ids shift down by one, in the index too):
//
//	id, _ := fs.AddShape(shp.ShapeFromPoint(orb.Point{1, 2}))
//	_ = fs.SetVertex(id, 0, shp.Vertex{X: 1.5, Y: 2, M: shp.MeasureNoData})
//	_ = fs.RemoveShape(3, false)
//	err = fs.SaveAs(ctx, "roads-edited.shp", false)
//
// # Many Files
//
// OpenMany loads several files with a worker pool, and a Catalog indexes a
// directory tree by file extent:
//
//	cat, errs := shp.BuildCatalogFromDir(ctx, "/data/osm", shp.DefaultLoadOptions())
//	for _, e := range cat.Query(viewport) {
//	    fmt.Println(e.Path, e.Records)
//	}
//
// # Attributes and Projection
//
// The attribute table (.dbf) is not read by this package. Callers that have
// one plug it in through AttributeProvider. The .prj file is carried through
// verbatim; no coordinate transformation is performed.
package shp

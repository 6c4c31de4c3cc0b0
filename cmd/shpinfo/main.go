package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/beetlebugorg/shp/pkg/extent"
	"github.com/beetlebugorg/shp/pkg/shp"
	"github.com/beetlebugorg/shp/pkg/spatial"
	"github.com/golang/glog"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shpinfo",
	Short: "Inspect, query and rewrite ESRI shapefiles",
	Long: `shpinfo reads .shp/.shx pairs into memory and reports on them.

It can print header and record statistics, run bounding box queries
against the spatial index, export features as GeoJSON, rewrite a file
with recomputed offsets and extents, and catalog a directory tree.

Logging goes through glog; use -v=1 for open/save summaries and -v=2
for stage progress.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its settings from the standard flag set.
		return flag.CommandLine.Parse(nil)
	},
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().String("index", string(spatial.BackendQuadtree), "Spatial index backend: quadtree, rtree")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(geojsonCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)
}

func openOptions(cmd *cobra.Command) shp.OpenOptions {
	opts := shp.DefaultOpenOptions()
	backend, _ := cmd.Flags().GetString("index")
	opts.Index = spatial.Backend(backend)
	return opts
}

// parseBBox parses "minx,miny,maxx,maxy".
func parseBBox(s string) (extent.Extent, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return extent.Extent{}, fmt.Errorf("bbox %q: want minx,miny,maxx,maxy", s)
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return extent.Extent{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = n
	}
	if v[0] > v[2] || v[1] > v[3] {
		return extent.Extent{}, fmt.Errorf("bbox %q: min exceeds max", s)
	}
	return extent.NewXY(v[0], v[1], v[2], v[3]), nil
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info <file.shp>",
	Short: "Display shapefile information",
	Long: `Display header fields and record statistics of a shapefile.

Shows the shape type, record and vertex counts, null records, the
extent and whether a .prj was found.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("json", false, "Output as JSON")
}

type fileInfo struct {
	Path        string    `json:"path"`
	ShapeType   string    `json:"shapeType"`
	Records     int       `json:"records"`
	NullRecords int       `json:"nullRecords"`
	Parts       int       `json:"parts"`
	Vertices    int       `json:"vertices"`
	FileBytes   int64     `json:"fileBytes"`
	Extent      []float64 `json:"extent"`
	ZRange      []float64 `json:"zRange,omitempty"`
	MRange      []float64 `json:"mRange,omitempty"`
	Projection  string    `json:"projection,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	set, err := shp.Open(cmd.Context(), args[0], openOptions(cmd))
	if err != nil {
		return fmt.Errorf("open shapefile: %w", err)
	}

	h := set.Header()
	e := set.Extent()
	info := fileInfo{
		Path:       set.Path(),
		ShapeType:  set.ShapeType().String(),
		Records:    set.Len(),
		Vertices:   set.Vertices().Len(),
		FileBytes:  h.FileSize(),
		Extent:     []float64{e.MinX, e.MinY, e.MaxX, e.MaxY},
		Projection: set.Projection(),
	}
	if e.HasZ() {
		info.ZRange = []float64{e.MinZ, e.MaxZ}
	}
	if e.HasM() {
		info.MRange = []float64{e.MinM, e.MaxM}
	}
	for _, r := range set.ShapeRanges() {
		if r.IsNull() {
			info.NullRecords++
		}
		info.Parts += len(r.Parts)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", info.Path)
	fmt.Fprintf(out, "Shape type: %s\n", info.ShapeType)
	fmt.Fprintf(out, "Records:    %d (%d null)\n", info.Records, info.NullRecords)
	fmt.Fprintf(out, "Parts:      %d\n", info.Parts)
	fmt.Fprintf(out, "Vertices:   %d\n", info.Vertices)
	fmt.Fprintf(out, "Size:       %d bytes\n", info.FileBytes)
	fmt.Fprintf(out, "Extent:     %s\n", e)
	if info.Projection != "" {
		fmt.Fprintf(out, "Projection: %s\n", info.Projection)
	}
	return nil
}

// query command
var queryCmd = &cobra.Command{
	Use:   "query <file.shp>",
	Short: "List records intersecting a bounding box",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().String("bbox", "", "Bounding box minx,miny,maxx,maxy (required)")
	queryCmd.MarkFlagRequired("bbox")
}

func runQuery(cmd *cobra.Command, args []string) error {
	bboxFlag, _ := cmd.Flags().GetString("bbox")
	bbox, err := parseBBox(bboxFlag)
	if err != nil {
		return err
	}

	set, err := shp.Open(cmd.Context(), args[0], openOptions(cmd))
	if err != nil {
		return fmt.Errorf("open shapefile: %w", err)
	}

	out := cmd.OutOrStdout()
	ids := set.Query(bbox)
	for _, id := range ids {
		r, err := set.ShapeRange(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%d parts\t%d points\t%s\n", id, len(r.Parts), r.NumPoints, r.Extent)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d records match\n", len(ids), set.Len())
	return nil
}

// geojson command
var geojsonCmd = &cobra.Command{
	Use:   "geojson <file.shp>",
	Short: "Export features as a GeoJSON FeatureCollection",
	Long: `Export every non-null record, or those intersecting --bbox, as a
GeoJSON FeatureCollection. Feature ids are record positions.`,
	Args: cobra.ExactArgs(1),
	RunE: runGeoJSON,
}

func init() {
	geojsonCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	geojsonCmd.Flags().String("bbox", "", "Only export records intersecting minx,miny,maxx,maxy")
}

func runGeoJSON(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	bboxFlag, _ := cmd.Flags().GetString("bbox")

	set, err := shp.Open(cmd.Context(), args[0], openOptions(cmd))
	if err != nil {
		return fmt.Errorf("open shapefile: %w", err)
	}

	bbox := set.Extent()
	if bboxFlag != "" {
		if bbox, err = parseBBox(bboxFlag); err != nil {
			return err
		}
	}
	features, err := set.FeaturesInExtent(bbox)
	if err != nil {
		return err
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		if gf := f.GeoJSON(); gf != nil {
			fc.Append(gf)
		}
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode GeoJSON: %w", err)
	}

	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// copy command
var copyCmd = &cobra.Command{
	Use:   "copy <src.shp> <dst.shp>",
	Short: "Rewrite a shapefile",
	Long: `Read a shapefile and write it to a new path. Record offsets, content
lengths and extents are recomputed. The .prj is carried over.`,
	Args: cobra.ExactArgs(2),
	RunE: runCopy,
}

func init() {
	copyCmd.Flags().Bool("overwrite", false, "Replace an existing destination")
	copyCmd.Flags().Bool("drop-null", false, "Delete null records instead of copying them")
}

func runCopy(cmd *cobra.Command, args []string) error {
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	dropNull, _ := cmd.Flags().GetBool("drop-null")

	opts := openOptions(cmd)
	opts.Progress = shp.ProgressFunc(func(stage string, percent int, message string) {
		if percent == 100 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", stage, message)
		}
	})

	set, err := shp.Open(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("open shapefile: %w", err)
	}

	if dropNull {
		dropped := 0
		for i := set.Len() - 1; i >= 0; i-- {
			r, _ := set.ShapeRange(i)
			if !r.IsNull() {
				continue
			}
			if err := set.RemoveShape(i, true); err != nil {
				return err
			}
			dropped++
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d null records\n", dropped)
	}

	if err := set.SaveAs(cmd.Context(), args[1], overwrite); err != nil {
		return fmt.Errorf("save shapefile: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", set.Len(), set.Path())
	return nil
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog <dir>",
	Short: "Summarise every shapefile under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().String("bbox", "", "Only list files intersecting minx,miny,maxx,maxy")
	catalogCmd.Flags().Int("workers", 0, "Loader goroutines (default: number of CPUs)")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	bboxFlag, _ := cmd.Flags().GetString("bbox")
	workers, _ := cmd.Flags().GetInt("workers")

	opts := shp.DefaultLoadOptions()
	opts.Open = openOptions(cmd)
	opts.ErrorLog = cmd.ErrOrStderr()
	if workers > 0 {
		opts.Workers = workers
	}

	cat, errs := shp.BuildCatalogFromDir(cmd.Context(), args[0], opts)
	if cat == nil {
		return fmt.Errorf("build catalog: %v", errs[len(errs)-1])
	}

	entries := cat.All()
	if bboxFlag != "" {
		bbox, err := parseBBox(bboxFlag)
		if err != nil {
			return err
		}
		entries = cat.Query(bbox)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\t%d records\t%s\n", e.Path, e.ShapeType, e.Records, e.Extent)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d files cataloged, %d failed, extent %s\n", cat.Count(), len(errs), cat.Extent())
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shpinfo version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}

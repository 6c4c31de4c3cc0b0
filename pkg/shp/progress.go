package shp

import (
	"github.com/beetlebugorg/shp/internal/shapefile"
	"github.com/golang/glog"
)

// Progress stages reported to a ProgressHandler.
const (
	StageIndex   = "index"   // reading the .shx
	StageDecode  = "decode"  // filling the vertex arena
	StageSpatial = "spatial" // building the spatial index
	StageEncode  = "encode"  // writing .shp and .shx
)

// ProgressHandler receives advisory progress. Implementations must be fast;
// they run on the loading goroutine. Cancellation goes through the context
// passed to Open or Save, not through the handler.
type ProgressHandler interface {
	Progress(stage string, percent int, message string)
}

// ProgressFunc adapts a function to ProgressHandler.
type ProgressFunc func(stage string, percent int, message string)

// Progress implements ProgressHandler.
func (f ProgressFunc) Progress(stage string, percent int, message string) {
	f(stage, percent, message)
}

// report sends one progress event, also logging it at verbosity 2.
func report(h ProgressHandler, stage string, percent int, message string) {
	if glog.V(2) {
		glog.Infof("%s %d%%: %s", stage, percent, message)
	}
	if h != nil {
		h.Progress(stage, percent, message)
	}
}

// stageReporter binds a handler to one stage for the codec.
func stageReporter(h ProgressHandler, stage string) shapefile.ProgressFunc {
	if h == nil && !glog.V(2) {
		return nil
	}
	return func(percent int, message string) {
		report(h, stage, percent, message)
	}
}

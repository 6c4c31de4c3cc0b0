package shp

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/golang/glog"
)

// LoadOptions controls OpenMany.
type LoadOptions struct {
	// Parallel enables concurrent loading. Each file is still decoded by a
	// single goroutine.
	Parallel bool

	// Workers is the number of loader goroutines. If 0, runtime.NumCPU().
	Workers int

	// SkipErrors keeps loading when a file fails; failures are collected.
	// When false, the first error stops loading.
	SkipErrors bool

	// Progress is called after each file is processed, successfully or not.
	Progress func(loaded, total int)

	// ErrorLog receives one line per failed file.
	ErrorLog io.Writer

	// Open is passed to Open for every file.
	Open OpenOptions
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
		Open:       DefaultOpenOptions(),
	}
}

// OpenMany opens several shapefiles with a worker pool.
//
// Successfully opened sets are returned in input order; failed paths are
// omitted and their errors returned. Cancelling ctx stops workers from
// starting new files.
//
// Example:
//
//	sets, errs := shp.OpenMany(ctx, paths, shp.LoadOptions{
//	    Parallel:   true,
//	    SkipErrors: true,
//	    Progress: func(loaded, total int) {
//	        fmt.Printf("\rLoading: %d/%d", loaded, total)
//	    },
//	    Open: shp.DefaultOpenOptions(),
//	})
func OpenMany(ctx context.Context, paths []string, opts LoadOptions) ([]*FeatureSet, []error) {
	if len(paths) == 0 {
		return []*FeatureSet{}, nil
	}
	if !opts.Parallel {
		return openSerial(ctx, paths, opts)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	type loadResult struct {
		index int
		set   *FeatureSet
		err   error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, len(paths))
	results := make(chan loadResult, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					results <- loadResult{index: index, err: err}
					continue
				}
				set, err := Open(ctx, paths[index], opts.Open)
				results <- loadResult{index: index, set: set, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	sets := make(map[int]*FeatureSet)
	var errs []error
	loaded := 0
	failed := false

	for result := range results {
		loaded++
		if opts.Progress != nil {
			opts.Progress(loaded, len(paths))
		}

		if result.err != nil {
			if failed {
				continue
			}
			err := fmt.Errorf("%s: %w", paths[result.index], result.err)
			logLoadError(opts.ErrorLog, err)
			errs = append(errs, err)
			if !opts.SkipErrors {
				// Drain remaining results so workers can exit.
				failed = true
				cancel()
			}
			continue
		}
		sets[result.index] = result.set
	}
	if failed {
		return nil, errs
	}

	out := make([]*FeatureSet, 0, len(sets))
	for i := range paths {
		if set, ok := sets[i]; ok {
			out = append(out, set)
		}
	}
	return out, errs
}

// openSerial loads files one at a time.
func openSerial(ctx context.Context, paths []string, opts LoadOptions) ([]*FeatureSet, []error) {
	sets := make([]*FeatureSet, 0, len(paths))
	var errs []error

	for i, path := range paths {
		set, err := Open(ctx, path, opts.Open)
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", path, err)
			logLoadError(opts.ErrorLog, err)
			if !opts.SkipErrors {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		sets = append(sets, set)
	}
	return sets, errs
}

func logLoadError(w io.Writer, err error) {
	glog.Warningf("load failed: %v", err)
	if w != nil {
		fmt.Fprintf(w, "Error loading shapefile: %v\n", err)
	}
}

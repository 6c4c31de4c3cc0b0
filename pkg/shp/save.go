package shp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/shp/internal/shapefile"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Save writes the set back to the path it was opened from or last saved to.
func (s *FeatureSet) Save(ctx context.Context) error {
	path := s.Path()
	if path == "" {
		return ErrNoPath
	}
	return s.SaveAs(ctx, path, true)
}

// SaveAs writes the .shp, .shx and (when a projection is set) .prj files.
//
// Content lengths, record offsets and the header extent are recomputed from
// the arena. Each file is written to a temporary sibling and renamed into
// place while an exclusive advisory lock is held on the target's lock file.
// An existing target with overwrite false fails with ErrExists.
//
// A failure while renaming leaves the files already renamed in place; the
// .shx goes first, then the .shp, then the .prj.
func (s *FeatureSet) SaveAs(ctx context.Context, path string, overwrite bool) error {
	shpPath, shxPath, prjPath := paths(path)

	_, statErr := os.Stat(shpPath)
	if statErr == nil && !overwrite {
		return fmt.Errorf("%s: %w", shpPath, ErrExists)
	}
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", shpPath, statErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := acquireLock(ctx, shpPath, true, s.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	header, index, err := s.writeFiles(ctx, shpPath, shxPath, prjPath)
	if err != nil {
		return err
	}

	s.path = shpPath
	s.header = header
	s.index = index
	s.extent = header.Extent
	s.extentStale = false
	s.dirty = false
	if err := s.buildSpatialIndex(ctx); err != nil {
		return err
	}

	if glog.V(1) {
		glog.Infof("saved %s: %d records, %d bytes", shpPath, len(s.shapes), header.FileSize())
	}
	return nil
}

// writeFiles encodes the set into temporary files and renames them over the
// targets. Must be called with s.mu locked.
func (s *FeatureSet) writeFiles(ctx context.Context, shpPath, shxPath, prjPath string) (shapefile.Header, []shapefile.IndexEntry, error) {
	tag := uuid.NewString()
	tmp := func(target string) string {
		return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+"."+tag+".tmp")
	}
	shpTmp, shxTmp, prjTmp := tmp(shpPath), tmp(shxPath), tmp(prjPath)
	cleanup := func() {
		os.Remove(shpTmp)
		os.Remove(shxTmp)
		os.Remove(prjTmp)
	}

	shpFile, err := os.Create(shpTmp)
	if err != nil {
		return shapefile.Header{}, nil, fmt.Errorf("create %s: %w", shpTmp, err)
	}
	shxFile, err := os.Create(shxTmp)
	if err != nil {
		shpFile.Close()
		cleanup()
		return shapefile.Header{}, nil, fmt.Errorf("create %s: %w", shxTmp, err)
	}

	enc := shapefile.NewEncoder(s.header.ShapeType)
	enc.Progress = stageReporter(s.opts.Progress, StageEncode)
	header, index, err := enc.WriteShapes(ctx, shpFile, shxFile, s.shapes, s.verts)
	if err == nil {
		err = syncClose(shpFile)
	} else {
		shpFile.Close()
	}
	if cerr := syncClose(shxFile); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return shapefile.Header{}, nil, err
	}

	renames := [][2]string{{shxTmp, shxPath}, {shpTmp, shpPath}}
	if s.projection != "" {
		if err := os.WriteFile(prjTmp, []byte(s.projection), 0o644); err != nil {
			cleanup()
			return shapefile.Header{}, nil, fmt.Errorf("write %s: %w", prjTmp, err)
		}
		renames = append(renames, [2]string{prjTmp, prjPath})
	}
	for _, r := range renames {
		if err := os.Rename(r[0], r[1]); err != nil {
			cleanup()
			return shapefile.Header{}, nil, fmt.Errorf("rename %s: %w", r[1], err)
		}
	}
	return header, index, nil
}

func syncClose(f *os.File) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

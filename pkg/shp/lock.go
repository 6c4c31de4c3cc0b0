package shp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang/glog"
)

// lockRetryDelay is the polling interval while waiting for a held lock.
const lockRetryDelay = 50 * time.Millisecond

// lockPath is the file that carries the advisory lock for a .shp. Saving
// replaces the .shp itself by rename, so the lock lives on a sibling that is
// never renamed or removed.
func lockPath(shpPath string) string {
	return shpPath + ".lock"
}

// acquireLock takes an advisory lock for shpPath, shared or exclusive. The lock
// file is created if it does not exist. A conflicting lock is retried until
// timeout; the returned error then matches ErrLocked.
//
// A shared lock in a directory where the lock file cannot be created is
// skipped with a warning and a nil lock is returned.
func acquireLock(ctx context.Context, shpPath string, exclusive bool, timeout time.Duration) (*flock.Flock, error) {
	path := lockPath(shpPath)
	fl := flock.New(path)

	var ok bool
	var err error
	if timeout <= 0 {
		if exclusive {
			ok, err = fl.TryLock()
		} else {
			ok, err = fl.TryRLock()
		}
	} else {
		lctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if exclusive {
			ok, err = fl.TryLockContext(lctx, lockRetryDelay)
		} else {
			ok, err = fl.TryRLockContext(lctx, lockRetryDelay)
		}
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = nil // our timeout, not the caller's
		}
	}

	if err != nil {
		fl.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !exclusive && errors.Is(err, fs.ErrPermission) {
			glog.Warningf("reading %s without a lock: %v", shpPath, err)
			return nil, nil
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		fl.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	if glog.V(3) {
		glog.Infof("locked %s (exclusive=%v)", path, exclusive)
	}
	return fl, nil
}

// releaseLock unlocks and closes fl, logging failures.
func releaseLock(fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Unlock(); err != nil {
		glog.Warningf("unlock %s: %v", fl.Path(), err)
	}
	fl.Close()
}

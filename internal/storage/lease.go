package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
)

// fileLeaser is a cross process lease backed by an advisory lock file
type fileLeaser struct {
	path string
}

var _ Leaser = (*fileLeaser)(nil)

// newFileLeaser creates a lease on path; the file is created on first use
func newFileLeaser(path string) *fileLeaser {
	return &fileLeaser{path: path}
}

// Acquire takes the lock file without waiting
func (l *fileLeaser) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := flock.New(l.path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	if !locked {
		return nil, ErrLeaseHeld
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release store lease", "path", l.path, "error", err)
		}
	}, nil
}

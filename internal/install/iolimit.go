package install

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultIOConcurrencyLimit bounds simultaneous filesystem link/copy
// operations. Linking a large environment opens many files at once; an
// unbounded installer can exhaust the process's file descriptors.
const DefaultIOConcurrencyLimit = 100

// IOLimit is a counting permit pool shared by every installer invocation
// in the process. Callers interact with it only through Acquire and
// Release.
type IOLimit struct {
	sem  *semaphore.Weighted
	size int64
}

// NewIOLimit creates a permit pool of the given size. A size of zero or
// less falls back to the default.
func NewIOLimit(size int64) *IOLimit {
	if size <= 0 {
		size = DefaultIOConcurrencyLimit
	}
	return &IOLimit{
		sem:  semaphore.NewWeighted(size),
		size: size,
	}
}

// Acquire takes one permit, blocking until one is free or the context is
// done.
func (l *IOLimit) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns one permit.
func (l *IOLimit) Release() {
	l.sem.Release(1)
}

// Size returns the pool capacity.
func (l *IOLimit) Size() int64 {
	return l.size
}

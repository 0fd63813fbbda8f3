package database

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// lockSet holds one single-writer semaphore per collection. The map is
// filled once at open and only read afterwards.
type lockSet struct {
	sems    map[string]*semaphore.Weighted
	timeout time.Duration
}

func newLockSet(names []string, timeout time.Duration) *lockSet {
	sems := make(map[string]*semaphore.Weighted, len(names))
	for _, name := range names {
		sems[name] = semaphore.NewWeighted(1)
	}
	return &lockSet{sems: sems, timeout: timeout}
}

// acquire waits for the collection lock. It gives up with ErrLockTimeout
// after the configured timeout, or with the context error when ctx ends
// first.
func (l *lockSet) acquire(ctx context.Context, collection string) (release func(), err error) {
	sem, ok := l.sems[collection]
	if !ok {
		return nil, ErrUnknownCollection
	}

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrLockTimeout
	}
	return func() { sem.Release(1) }, nil
}

// WriteTx runs fn in a transaction while holding the write lock of
// collection. Errors returned by fn are passed through untouched; failures to
// lock, begin or commit are classified.
//
// fn must only use tx. Calling back into the access layer from inside fn
// waits on the same lock or connection and times out.
func (d *Database) WriteTx(ctx context.Context, collection string, fn func(tx *gorm.DB) error) error {
	release, err := d.locks.acquire(ctx, collection)
	if err != nil {
		return opError("tx", collection, err)
	}
	defer release()

	var fnErr error
	err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(tx)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return opError("tx", collection, err)
}

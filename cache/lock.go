package cache

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// writerWeight is the full semaphore weight. A writer holds all of it, a
// reader holds one unit.
const writerWeight = 1 << 30

// rwLock is a readers-writer lock with FIFO admission. A waiting writer
// blocks every reader that arrives after it, and readers queued ahead of a
// writer are admitted first.
type rwLock struct {
	sem *semaphore.Weighted
}

func newRWLock() *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(writerWeight)}
}

func (l *rwLock) RLock(ctx context.Context) error { return l.sem.Acquire(ctx, 1) }

func (l *rwLock) RUnlock() { l.sem.Release(1) }

func (l *rwLock) Lock(ctx context.Context) error { return l.sem.Acquire(ctx, writerWeight) }

func (l *rwLock) TryLock() bool { return l.sem.TryAcquire(writerWeight) }

func (l *rwLock) Unlock() { l.sem.Release(writerWeight) }

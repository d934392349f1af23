package indexer

import "sync/atomic"

// IndexLock guards the file index so that at most one sync runs at a time.
// Acquisition never blocks: a caller that loses the race reports the sync
// as already in progress instead of queueing behind it.
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = sync running
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a sync currently holds the lock
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}

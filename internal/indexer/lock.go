package indexer

import "sync/atomic"

// IndexLock keeps two runs from overlapping inside one process, for example
// when the MCP server receives a second index request while one is running.
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = running
}

// TryAcquire reports whether the caller now owns the lock. It never blocks.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the owner may call it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a run currently owns the lock
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}

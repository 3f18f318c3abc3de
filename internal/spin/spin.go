// Package spin provides a small spin-based reader-writer lock. Unlike
// sync.RWMutex it supports downgrading a write lock to a read lock
// without a window in which another writer can slip in, which the vCPU
// table needs to hand out a pinned idle reference right after a state
// transition. The lock is intended for short critical sections only.
package spin

import (
	"runtime"
	"sync/atomic"
)

const writerLocked = -1

// RWMutex is a reader-writer spin lock. The zero value is unlocked. It
// contains no pointers, so it can be placed in raw page-backed storage.
type RWMutex struct {
	// >= 0: number of readers; writerLocked: held exclusively.
	state atomic.Int32
}

// Lock acquires the lock exclusively, spinning until no readers or
// writer remain.
func (m *RWMutex) Lock() {
	for !m.state.CompareAndSwap(0, writerLocked) {
		runtime.Gosched()
	}
}

// Unlock releases an exclusive lock.
func (m *RWMutex) Unlock() {
	if !m.state.CompareAndSwap(writerLocked, 0) {
		panic("spin: Unlock of RWMutex not write-locked")
	}
}

// RLock acquires the lock shared, spinning while a writer holds it.
func (m *RWMutex) RLock() {
	for {
		s := m.state.Load()
		if s >= 0 && m.state.CompareAndSwap(s, s+1) {
			return
		}
		runtime.Gosched()
	}
}

// RUnlock releases a shared lock.
func (m *RWMutex) RUnlock() {
	for {
		s := m.state.Load()
		if s <= 0 {
			panic("spin: RUnlock of RWMutex not read-locked")
		}
		if m.state.CompareAndSwap(s, s-1) {
			return
		}
	}
}

// Downgrade atomically converts an exclusive lock into a shared lock.
// Waiting readers may proceed; no writer can acquire the lock before the
// caller's read lock is released.
func (m *RWMutex) Downgrade() {
	if !m.state.CompareAndSwap(writerLocked, 1) {
		panic("spin: Downgrade of RWMutex not write-locked")
	}
}

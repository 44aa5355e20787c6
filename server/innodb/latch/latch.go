package latch

import "sync"

// Latch is a plain reader/writer latch. The extendible hash table uses one
// as its table-wide latch; bucket-level latching reuses buffer_pool.Page's
// own RWMutex instead of this type.
type Latch struct {
	mu sync.RWMutex
}

func NewLatch() *Latch {
	return &Latch{}
}

func (l *Latch) Lock() {
	l.mu.Lock()
}

func (l *Latch) Unlock() {
	l.mu.Unlock()
}

func (l *Latch) RLock() {
	l.mu.RLock()
}

func (l *Latch) RUnlock() {
	l.mu.RUnlock()
}

func (l *Latch) TryLock() bool {
	return l.mu.TryLock()
}

func (l *Latch) TryRLock() bool {
	return l.mu.TryRLock()
}

package buffer_pool

import "sync/atomic"

// Stats holds atomic counters describing a buffer pool manager instance's
// behavior over its lifetime: hit/miss counts, evictions, and flushes,
// minus any young/old-region counters that have no referent once the
// replacer is a plain LRU list.
type Stats struct {
	hits      uint64
	misses    uint64
	evictions uint64
	flushes   uint64
}

func (s *Stats) recordHit()      { atomic.AddUint64(&s.hits, 1) }
func (s *Stats) recordMiss()     { atomic.AddUint64(&s.misses, 1) }
func (s *Stats) recordEviction() { atomic.AddUint64(&s.evictions, 1) }
func (s *Stats) recordFlush()    { atomic.AddUint64(&s.flushes, 1) }

// Snapshot is a point-in-time copy of the counters, safe to read without
// racing further updates.
type Snapshot struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Hits:      atomic.LoadUint64(&s.hits),
		Misses:    atomic.LoadUint64(&s.misses),
		Evictions: atomic.LoadUint64(&s.evictions),
		Flushes:   atomic.LoadUint64(&s.flushes),
	}
}

// HitRate returns hits / (hits + misses), or 0 if there have been no
// lookups yet.
func (snap Snapshot) HitRate() float64 {
	total := snap.Hits + snap.Misses
	if total == 0 {
		return 0
	}
	return float64(snap.Hits) / float64(total)
}

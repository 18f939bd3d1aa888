package cache

import "sync/atomic"

// Stats holds cache counters using atomics so they can be updated without
// taking any store lock.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	loads     atomic.Int64
	evictions atomic.Int64
}

func (s *Stats) hit() {
	s.hits.Add(1)
}

func (s *Stats) miss() {
	s.misses.Add(1)
}

func (s *Stats) load() {
	s.loads.Add(1)
}

func (s *Stats) evict(n int) {
	s.evictions.Add(int64(n))
}

// Snapshot is a point-in-time copy of cache statistics.
type Snapshot struct {
	// Hits counts reads that found a readable value.
	Hits int64
	// Misses counts reads that found nothing readable.
	Misses int64
	// Loads counts invocations of functions passed to the compute operations.
	Loads int64
	// Evictions counts entries removed because they expired or were
	// reclaimed, whether on access or by the background sweep.
	Evictions int64
}

// HitRate returns the hit rate as a value between 0 and 1, or 0 if there
// have been no reads.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot returns a point-in-time copy of the stats.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Loads:     s.loads.Load(),
		Evictions: s.evictions.Load(),
	}
}

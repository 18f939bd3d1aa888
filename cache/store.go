package cache

import (
	"hash/maphash"
	"math/bits"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// slot is the per-key cell of the store. Its mutex serialises every
// operation on the key. Once unlinked the slot is no longer reachable from
// its shard and callers must look the key up again.
type slot[V any] struct {
	mu       sync.Mutex
	entry    entry[V]
	unlinked bool
}

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	slots map[K]*slot[V]
}

// store is a sharded map from keys to entries with atomic per-key updates.
type store[K comparable, V any] struct {
	seed   maphash.Seed
	mask   uint64
	shards []*shard[K, V]
}

// updateFunc receives the entry currently installed for a key (nil when there
// is none) and returns the entry to install. A nil result removes the key.
// When it returns an error the store is left unchanged.
type updateFunc[V any] func(cur entry[V]) (entry[V], error)

func newStore[K comparable, V any](shards int) *store[K, V] {
	n := 1
	if shards > 1 {
		n = 1 << bits.Len(uint(shards-1))
	}
	s := &store[K, V]{
		seed:   maphash.MakeSeed(),
		mask:   uint64(n - 1),
		shards: make([]*shard[K, V], n),
	}
	for i := range s.shards {
		s.shards[i] = &shard[K, V]{slots: make(map[K]*slot[V])}
	}
	return s
}

func (s *store[K, V]) shardFor(key K) *shard[K, V] {
	var h uint64
	switch k := any(key).(type) {
	case string:
		h = xxhash.Sum64String(k)
	default:
		h = maphash.Comparable(s.seed, key)
	}
	return s.shards[h&s.mask]
}

// compute applies fn to key's entry while holding the key's lock, creating
// the slot if needed.
func (s *store[K, V]) compute(key K, fn updateFunc[V]) error {
	sh := s.shardFor(key)
	for {
		sl := sh.acquire(key)
		sl.mu.Lock()
		if sl.unlinked {
			sl.mu.Unlock()
			continue
		}
		return sh.update(key, sl, fn)
	}
}

// computePresent is compute for operations that never insert: when key has
// no slot fn is not called.
func (s *store[K, V]) computePresent(key K, fn updateFunc[V]) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sl := sh.slots[key]
	sh.mu.Unlock()
	if sl == nil {
		return nil
	}
	sl.mu.Lock()
	if sl.unlinked {
		sl.mu.Unlock()
		return nil
	}
	return sh.update(key, sl, fn)
}

func (sh *shard[K, V]) acquire(key K) *slot[V] {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sl, ok := sh.slots[key]
	if !ok {
		sl = &slot[V]{}
		sh.slots[key] = sl
	}
	return sl
}

// update runs fn with sl locked and releases the lock, also when fn panics.
// A slot left without an entry is unlinked.
func (sh *shard[K, V]) update(key K, sl *slot[V], fn updateFunc[V]) error {
	defer func() {
		if sl.entry == nil {
			sh.unlink(key, sl)
		}
		sl.mu.Unlock()
	}()
	next, err := fn(sl.entry)
	if err != nil {
		return err
	}
	if sl.entry != nil && sl.entry != next {
		sl.entry.discard()
	}
	sl.entry = next
	return nil
}

// unlink removes sl from the shard if it is still the slot for key. The
// caller holds sl.mu.
func (sh *shard[K, V]) unlink(key K, sl *slot[V]) {
	sl.unlinked = true
	sh.mu.Lock()
	if sh.slots[key] == sl {
		delete(sh.slots, key)
	}
	sh.mu.Unlock()
}

// evict removes key if sl is still its slot and the installed entry can be
// evicted. It gives up instead of waiting when the slot is busy.
func (sh *shard[K, V]) evict(key K, sl *slot[V]) bool {
	if !sl.mu.TryLock() {
		return false
	}
	defer sl.mu.Unlock()
	if sl.unlinked || sl.entry == nil || !sl.entry.canBeEvicted() {
		return false
	}
	sl.entry.discard()
	sl.entry = nil
	sh.unlink(key, sl)
	return true
}

// sweep removes every evictable entry and returns how many were removed.
// The shard map lock is only held while copying the slots; each slot is then
// examined without blocking on foreground operations.
func (s *store[K, V]) sweep() int {
	type candidate struct {
		key K
		sl  *slot[V]
	}
	var removed int
	var batch []candidate
	for _, sh := range s.shards {
		batch = batch[:0]
		sh.mu.Lock()
		for k, sl := range sh.slots {
			batch = append(batch, candidate{k, sl})
		}
		sh.mu.Unlock()
		for _, c := range batch {
			if sh.evict(c.key, c.sl) {
				removed++
			}
		}
	}
	return removed
}

// len counts slots, including expired entries that have not been removed yet.
func (s *store[K, V]) len() int {
	var n int
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.slots)
		sh.mu.Unlock()
	}
	return n
}

// clear empties every shard. Slots that are idle are released so that waiting
// operations look their key up again; a slot busy with an operation is left to
// finish on its own.
func (s *store[K, V]) clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		old := sh.slots
		sh.slots = make(map[K]*slot[V])
		sh.mu.Unlock()
		for _, sl := range old {
			sl.release()
		}
	}
}

func (sl *slot[V]) release() {
	if !sl.mu.TryLock() {
		return
	}
	defer sl.mu.Unlock()
	sl.unlinked = true
	if sl.entry != nil {
		sl.entry.discard()
		sl.entry = nil
	}
}

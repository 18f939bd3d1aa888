package cache

// MappingFunc computes the value for a key that has no present value.
type MappingFunc[K comparable, V any] func(key K) (V, error)

// RemappingFunc computes a new value for key. present reports whether current
// holds the key's present value.
type RemappingFunc[K comparable, V any] func(key K, current V, present bool) (V, error)

// Cache is a concurrent key/value store whose entries expire with age.
//
// A value is present while its entry has not timed out and, for caches built
// with NewDeferred, has not been reclaimed. Get may still return a timed out
// value that RetainAfterExpiry keeps alive; the other operations treat it as
// absent.
//
// Results that can be empty are returned as (found, value, error). Every
// compute-style operation runs as one atomic step for its key, so concurrent
// callers on the same key never lose updates. The functions given to compute
// operations run while the key is locked: they may use the cache for other
// keys but must not touch their own key.
type Cache[K comparable, V any] interface {
	// Put stores val under key and returns val.
	Put(key K, val V) (V, error)
	// PutIfPresent replaces the value only if key has an entry that has not
	// timed out.
	PutIfPresent(key K, val V) (bool, V, error)
	// PutIfAbsent stores val only if key holds no present value. It returns
	// the existing value with found=true when nothing was stored.
	PutIfAbsent(key K, val V) (bool, V, error)
	// ComputeIfAbsent returns the present value for key, or stores and
	// returns the result of fn. fn is not called when a value is present.
	ComputeIfAbsent(key K, fn MappingFunc[K, V]) (V, error)
	// ComputeIfPresent replaces a present value with the result of fn.
	ComputeIfPresent(key K, fn RemappingFunc[K, V]) (bool, V, error)
	// Compute stores and returns the result of fn, which receives the
	// present value if there is one.
	Compute(key K, fn RemappingFunc[K, V]) (V, error)
	// Remove deletes key and returns its value if it was readable.
	Remove(key K) (bool, V, error)
	// Get returns the readable value for key. An entry that is no longer
	// readable is removed.
	Get(key K) (bool, V, error)
	// ContainsKey reports whether Get would find a value.
	ContainsKey(key K) (bool, error)
	// Size returns the number of stored entries, including expired entries
	// that have not been removed yet.
	Size() (int, error)
	// Clear removes every entry.
	Clear() error
	// Alive reports whether the cache still accepts operations.
	Alive() bool
	// Shutdown stops background work and empties the cache. Every later
	// operation fails with ErrInvalidState.
	Shutdown()
	// Close calls Shutdown. It always returns nil.
	Close() error
}

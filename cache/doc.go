// Package cache provides a generic, concurrent in-memory cache whose entries
// expire with age.
//
// # Cache Interface
//
// The [Cache] interface is implemented by [Timed], returned by [New], and by
// [Disabled], which stores nothing. Call sites hold a [Cache] and can switch
// caching off by constructing the other implementation:
//
//	var users cache.Cache[string, *User]
//	if cfg.CacheUsers {
//	    users, err = cache.New[string, *User](cache.Config{Timeout: time.Minute})
//	} else {
//	    users = cache.NewDisabled[string, *User]()
//	}
//
// A value is present while its entry has not timed out and has not been
// reclaimed. The conditional puts and compute operations only see present
// values.
//
// Lookups return (found, value, error). The error is only ever non-nil when
// the cache has been shut down ([ErrInvalidState]) or when a function passed
// to a compute operation failed; such errors are returned unmodified.
//
// # Expiry
//
// [Config.Timeout] is the age after which an entry can no longer be read. A
// zero timeout never expires entries by time, and a negative timeout turns
// every insert into a no-op. With [Config.RefreshOnAccess] each successful
// read resets the entry's age, so an entry read more often than the timeout
// never expires.
//
// Expired entries are removed lazily when [Cache.Get] observes them, and, when
// [Config.CleanupInterval] is set, by a background sweep running at that
// period. [Cache.Size] counts every stored entry, including expired ones the
// sweep has not reached yet, so it is an approximation of the number of live
// entries.
//
// # Deferred Reclaim
//
// [NewDeferred] builds a cache of pointers that it holds through weak
// references (see the standard library weak package): the garbage collector
// may free a value at any time once the caller no longer refers to it, and
// the entry then disappears. Adding [Config.RetainAfterExpiry] pins each value
// while its entry is younger than the timeout. The pin is dropped by a timer
// when the entry times out; after that the value stays readable through Get
// until the collector actually reclaims it, and only then may the sweep
// remove the entry.
//
// A configuration with a zero timeout, no deferred reclaim and no cleanup
// interval would keep everything forever and is rejected by [New] with
// [ErrInvalidConfiguration].
//
// # Atomicity
//
// [Cache.ComputeIfAbsent], [Cache.ComputeIfPresent], [Cache.Compute] and the
// conditional puts each run as one atomic step for their key. Two concurrent
// ComputeIfAbsent calls on a missing key invoke the function once and both
// return its result:
//
//	user, err := users.ComputeIfAbsent(id, func(id string) (*User, error) {
//	    return db.LoadUser(ctx, id)
//	})
//
// The function runs while its key is locked. It may use the cache for other
// keys but must not operate on its own key. Different keys are independent;
// there are no cross-key transactions.
//
// # Lifecycle
//
// [Cache.Shutdown] stops the sweep, empties the cache and makes every later
// operation fail with [ErrInvalidState]. It is safe to call more than once
// and from several goroutines.
//
// # Observability
//
// [Timed.Stats] returns hit, miss, load and eviction counters. [WithMeter]
// exports the same counters and the store size as OpenTelemetry observable
// instruments, and [WithLogger] routes lifecycle and sweep messages to a
// [logger.Logger].
package cache

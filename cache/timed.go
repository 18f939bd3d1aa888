package cache

import (
	"sync"
	"sync/atomic"

	"github.com/agentuity/go-timedcache/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/metric"
)

// Timed is the storing Cache implementation.
type Timed[K comparable, V any] struct {
	cfg       Config
	newEntry  func(V) entry[V]
	store     *store[K, V]
	sweeper   *sweeper
	logger    logger.Logger
	stats     Stats
	metrics   metric.Registration
	alive     atomic.Bool
	closeOnce sync.Once
}

var _ Cache[string, any] = (*Timed[string, any])(nil)

// New validates cfg and returns a running cache. When cfg.CleanupInterval is
// at least one nanosecond a background sweep is started; it runs until
// Shutdown.
//
// New keeps its own reference to every value. Caches with
// cfg.DeferredReclaim set must be built with NewDeferred.
func New[K comparable, V any](cfg Config, opts ...Option) (*Timed[K, V], error) {
	if cfg.DeferredReclaim {
		return nil, errors.Wrap(ErrInvalidConfiguration, "deferred reclaim holds pointers weakly, use NewDeferred")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	p := newPolicy(cfg, o.clock)
	return newTimed[K](cfg, o, func(val V) entry[V] {
		return newDirectEntry(p, val)
	})
}

// NewDeferred returns a running cache that holds its values, pointers to T,
// through weak references: a value stays cached only while the garbage
// collector has not reclaimed it, which it may do as soon as the caller drops
// its last reference. With cfg.RetainAfterExpiry the cache also keeps a strong
// reference while the entry is younger than cfg.Timeout. cfg.DeferredReclaim
// is implied.
func NewDeferred[K comparable, T any](cfg Config, opts ...Option) (*Timed[K, *T], error) {
	cfg.DeferredReclaim = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	p := newPolicy(cfg, o.clock)
	return newTimed[K](cfg, o, func(val *T) entry[*T] {
		return newDeferredEntry(p, val)
	})
}

func newTimed[K comparable, V any](cfg Config, o options, newEntry func(V) entry[V]) (*Timed[K, V], error) {
	c := &Timed[K, V]{
		cfg:      cfg,
		newEntry: newEntry,
		store:    newStore[K, V](o.shards),
		logger:   o.logger.WithPrefix("[cache:" + o.name + "]"),
	}
	if o.meter != nil {
		reg, err := registerMetrics(o.meter, o.name, &c.stats, c.store.len)
		if err != nil {
			return nil, err
		}
		c.metrics = reg
	}
	c.alive.Store(true)
	if cfg.sweeps() {
		c.sweeper = startSweeper(cfg.CleanupInterval, c.logger, c.sweep)
	}
	c.logger.Debug("created with timeout=%v cleanup=%v refresh=%v retain=%v deferred=%v",
		cfg.Timeout, cfg.CleanupInterval, cfg.RefreshOnAccess, cfg.RetainAfterExpiry, cfg.DeferredReclaim)
	return c, nil
}

func (c *Timed[K, V]) sweep() int {
	n := c.store.sweep()
	c.stats.evict(n)
	return n
}

// stores reports whether inserts are honoured at all.
func (c *Timed[K, V]) stores() bool {
	return c.cfg.Timeout >= 0
}

// read returns the value of e when it is readable. Reads made on behalf of a
// caller refresh the entry if the cache is configured to.
func (c *Timed[K, V]) read(e entry[V], access bool) (V, bool) {
	if e == nil {
		var zero V
		return zero, false
	}
	return e.value(access && c.cfg.RefreshOnAccess)
}

// current returns the value of e when e is present: installed, not timed out
// and not reclaimed. A timed out value that is still retained is readable
// through Get but is not present.
func (c *Timed[K, V]) current(e entry[V], access bool) (V, bool) {
	if !live(e) {
		var zero V
		return zero, false
	}
	return c.read(e, access)
}

func (c *Timed[K, V]) Put(key K, val V) (V, error) {
	if !c.alive.Load() {
		var zero V
		return zero, deadError("Put")
	}
	if !c.stores() {
		return val, nil
	}
	err := c.store.compute(key, func(entry[V]) (entry[V], error) {
		return c.newEntry(val), nil
	})
	return val, err
}

func (c *Timed[K, V]) PutIfPresent(key K, val V) (bool, V, error) {
	var zero V
	if !c.alive.Load() {
		return false, zero, deadError("PutIfPresent")
	}
	if !c.stores() {
		return false, zero, nil
	}
	var replaced bool
	err := c.store.computePresent(key, func(cur entry[V]) (entry[V], error) {
		if !live(cur) {
			return cur, nil
		}
		replaced = true
		return c.newEntry(val), nil
	})
	if err != nil || !replaced {
		return false, zero, err
	}
	return true, val, nil
}

func (c *Timed[K, V]) PutIfAbsent(key K, val V) (bool, V, error) {
	var prev V
	if !c.alive.Load() {
		return false, prev, deadError("PutIfAbsent")
	}
	if !c.stores() {
		return false, prev, nil
	}
	var found bool
	err := c.store.compute(key, func(cur entry[V]) (entry[V], error) {
		if v, ok := c.current(cur, true); ok {
			prev, found = v, true
			return cur, nil
		}
		return c.newEntry(val), nil
	})
	return found, prev, err
}

func (c *Timed[K, V]) ComputeIfAbsent(key K, fn MappingFunc[K, V]) (V, error) {
	var result V
	if !c.alive.Load() {
		return result, deadError("ComputeIfAbsent")
	}
	if !c.stores() {
		c.stats.load()
		return fn(key)
	}
	err := c.store.compute(key, func(cur entry[V]) (entry[V], error) {
		if v, ok := c.current(cur, true); ok {
			c.stats.hit()
			result = v
			return cur, nil
		}
		c.stats.miss()
		c.stats.load()
		v, err := fn(key)
		if err != nil {
			return cur, err
		}
		result = v
		return c.newEntry(v), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result, nil
}

func (c *Timed[K, V]) ComputeIfPresent(key K, fn RemappingFunc[K, V]) (bool, V, error) {
	var result V
	if !c.alive.Load() {
		return false, result, deadError("ComputeIfPresent")
	}
	if !c.stores() {
		return false, result, nil
	}
	var found bool
	err := c.store.computePresent(key, func(cur entry[V]) (entry[V], error) {
		v, ok := c.current(cur, false)
		if !ok {
			return cur, nil
		}
		c.stats.load()
		next, err := fn(key, v, true)
		if err != nil {
			return cur, err
		}
		result, found = next, true
		return c.newEntry(next), nil
	})
	if err != nil || !found {
		var zero V
		return false, zero, err
	}
	return true, result, nil
}

func (c *Timed[K, V]) Compute(key K, fn RemappingFunc[K, V]) (V, error) {
	var result V
	if !c.alive.Load() {
		return result, deadError("Compute")
	}
	if !c.stores() {
		c.stats.load()
		return fn(key, result, false)
	}
	err := c.store.compute(key, func(cur entry[V]) (entry[V], error) {
		v, ok := c.current(cur, false)
		c.stats.load()
		next, err := fn(key, v, ok)
		if err != nil {
			return cur, err
		}
		result = next
		return c.newEntry(next), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result, nil
}

func (c *Timed[K, V]) Remove(key K) (bool, V, error) {
	var val V
	if !c.alive.Load() {
		return false, val, deadError("Remove")
	}
	var found bool
	err := c.store.computePresent(key, func(cur entry[V]) (entry[V], error) {
		val, found = c.read(cur, false)
		return nil, nil
	})
	return found, val, err
}

func (c *Timed[K, V]) Get(key K) (bool, V, error) {
	var val V
	if !c.alive.Load() {
		return false, val, deadError("Get")
	}
	var found bool
	err := c.store.computePresent(key, func(cur entry[V]) (entry[V], error) {
		val, found = c.read(cur, true)
		if found {
			return cur, nil
		}
		if cur != nil {
			c.stats.evict(1)
		}
		return nil, nil
	})
	if found {
		c.stats.hit()
	} else {
		c.stats.miss()
	}
	return found, val, err
}

func (c *Timed[K, V]) ContainsKey(key K) (bool, error) {
	if !c.alive.Load() {
		return false, deadError("ContainsKey")
	}
	found, _, err := c.Get(key)
	return found, err
}

func (c *Timed[K, V]) Size() (int, error) {
	if !c.alive.Load() {
		return 0, deadError("Size")
	}
	return c.store.len(), nil
}

func (c *Timed[K, V]) Clear() error {
	if !c.alive.Load() {
		return deadError("Clear")
	}
	c.store.clear()
	return nil
}

func (c *Timed[K, V]) Alive() bool {
	return c.alive.Load()
}

func (c *Timed[K, V]) Shutdown() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		if c.sweeper != nil {
			c.sweeper.stop()
		}
		c.store.clear()
		if c.metrics != nil {
			if err := c.metrics.Unregister(); err != nil {
				c.logger.Warn("failed to unregister metrics: %v", err)
			}
		}
		c.logger.Debug("shut down")
	})
}

func (c *Timed[K, V]) Close() error {
	c.Shutdown()
	return nil
}

// Stats returns a snapshot of the cache counters. It stays available after
// Shutdown.
func (c *Timed[K, V]) Stats() Snapshot {
	return c.stats.Snapshot()
}

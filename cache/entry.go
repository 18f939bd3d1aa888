package cache

import (
	"sync"
	"time"
)

// entry wraps a cached value with its expiry bookkeeping. Entries are only
// touched while the owning slot is locked.
type entry[V any] interface {
	// value returns the value when it is still readable, refreshing the
	// entry first when refresh is set.
	value(refresh bool) (V, bool)
	// timedOut reports whether the entry is older than the timeout.
	timedOut() bool
	// canBeEvicted reports whether the entry may be dropped from the store.
	canBeEvicted() bool
	// refresh resets the reference time to now.
	refresh()
	// discard releases anything the entry holds once it left the store.
	discard()
}

// live reports whether e is installed and not timed out.
func live[V any](e entry[V]) bool {
	return e != nil && !e.timedOut()
}

// policy is the part of the configuration every entry needs. It is shared by
// all entries of a cache.
type policy struct {
	timeout time.Duration
	retain  bool
	clock   Clock
}

func newPolicy(cfg Config, clock Clock) *policy {
	return &policy{
		timeout: cfg.Timeout,
		retain:  cfg.DeferredReclaim && cfg.RetainAfterExpiry,
		clock:   clock,
	}
}

func (p *policy) expired(ref time.Time) bool {
	switch {
	case p.timeout == 0:
		return false
	case p.timeout < 0:
		return true
	}
	return p.clock.Now().Sub(ref) > p.timeout
}

// untilExpired is how long after now an entry referenced at ref times out.
func (p *policy) untilExpired(ref time.Time) time.Duration {
	return p.timeout - p.clock.Now().Sub(ref) + time.Nanosecond
}

type directEntry[V any] struct {
	p   *policy
	val V
	ref time.Time
}

func newDirectEntry[V any](p *policy, val V) entry[V] {
	return &directEntry[V]{p: p, val: val, ref: p.clock.Now()}
}

func (e *directEntry[V]) value(refresh bool) (V, bool) {
	if e.timedOut() {
		var zero V
		return zero, false
	}
	if refresh {
		e.refresh()
	}
	return e.val, true
}

func (e *directEntry[V]) timedOut() bool {
	return e.p.expired(e.ref)
}

func (e *directEntry[V]) canBeEvicted() bool {
	return e.timedOut()
}

func (e *directEntry[V]) refresh() {
	e.ref = e.p.clock.Now()
}

func (e *directEntry[V]) discard() {}

// deferredEntry refers to the caller's pointer weakly. With retain set the
// pointer is also pinned until the entry times out, after which it stays
// readable until the garbage collector reclaims it. A timer drops the pin at
// the moment of expiry, so untouched entries become collectable without a
// sweep. mu guards the fields against that timer.
type deferredEntry[T any] struct {
	p     *policy
	mu    sync.Mutex
	data  reclaimable[T]
	ref   time.Time
	timer Timer
}

func newDeferredEntry[T any](p *policy, val *T) entry[*T] {
	e := &deferredEntry[T]{
		p:    p,
		data: newReclaimable(val, p.retain && p.timeout >= 0),
		ref:  p.clock.Now(),
	}
	e.mu.Lock()
	e.arm()
	e.mu.Unlock()
	return e
}

// arm schedules the pin to be dropped when the entry times out. It does
// nothing when no pin is held, the entry never times out, or a timer is
// already pending.
func (e *deferredEntry[T]) arm() {
	if !e.data.pinned() || e.p.timeout <= 0 || e.timer != nil {
		return
	}
	e.timer = e.p.clock.AfterFunc(e.p.untilExpired(e.ref), e.expire)
}

// expire runs on the timer. A refresh since the timer was armed moves the
// deadline, in which case the timer is armed again.
func (e *deferredEntry[T]) expire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer = nil
	if !e.p.expired(e.ref) {
		e.arm()
		return
	}
	e.data.unpin()
}

func (e *deferredEntry[T]) value(refresh bool) (*T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ptr, ok := e.data.get()
	if !ok {
		return nil, false
	}
	if e.timedOutLocked() && !e.p.retain {
		return nil, false
	}
	if refresh {
		e.refreshLocked()
	}
	return ptr, true
}

func (e *deferredEntry[T]) timedOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timedOutLocked()
}

// timedOutLocked also drops the pin when the timer has not fired yet.
func (e *deferredEntry[T]) timedOutLocked() bool {
	if e.p.expired(e.ref) {
		e.data.unpin()
		return true
	}
	return false
}

func (e *deferredEntry[T]) canBeEvicted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.p.retain {
		return e.timedOutLocked() && e.data.reclaimed()
	}
	return e.timedOutLocked()
}

func (e *deferredEntry[T]) refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
}

func (e *deferredEntry[T]) refreshLocked() {
	e.ref = e.p.clock.Now()
	if e.p.retain && e.p.timeout >= 0 && e.data.repin() {
		e.arm()
	}
}

func (e *deferredEntry[T]) discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.data.unpin()
}

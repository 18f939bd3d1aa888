package cache

import "weak"

// reclaimable refers to a caller's value weakly, so the garbage collector may
// free it once nothing else refers to it. While pin is set the value is
// strongly reachable and cannot be reclaimed. A nil value is never reclaimed.
type reclaimable[T any] struct {
	ref   weak.Pointer[T]
	pin   *T
	isNil bool
}

func newReclaimable[T any](val *T, pinned bool) reclaimable[T] {
	if val == nil {
		return reclaimable[T]{isNil: true}
	}
	r := reclaimable[T]{ref: weak.Make(val)}
	if pinned {
		r.pin = val
	}
	return r
}

// get returns the value, or false once it has been reclaimed.
func (r *reclaimable[T]) get() (*T, bool) {
	if r.isNil {
		return nil, true
	}
	if r.pin != nil {
		return r.pin, true
	}
	ptr := r.ref.Value()
	return ptr, ptr != nil
}

// reclaimed reports whether the value is gone. A nil value has nothing to
// wait for and counts as reclaimed.
func (r *reclaimable[T]) reclaimed() bool {
	if r.isNil {
		return true
	}
	_, ok := r.get()
	return !ok
}

func (r *reclaimable[T]) pinned() bool {
	return r.pin != nil
}

// repin re-establishes the strong reference if the value is still alive and
// reports whether the value is now pinned.
func (r *reclaimable[T]) repin() bool {
	if r.pin == nil && !r.isNil {
		r.pin = r.ref.Value()
	}
	return r.pin != nil
}

func (r *reclaimable[T]) unpin() {
	r.pin = nil
}

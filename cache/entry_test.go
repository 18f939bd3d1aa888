package cache

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirectEntryTimeout(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 100 * time.Millisecond}, clock)
	e := newDirectEntry(p, "v")

	v, ok := e.value(false)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(100 * time.Millisecond)
	assert.False(t, e.timedOut())
	clock.Advance(time.Nanosecond)
	assert.True(t, e.timedOut())
	assert.True(t, e.canBeEvicted())
	_, ok = e.value(true)
	assert.False(t, ok)
}

func TestDirectEntryRefresh(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 100 * time.Millisecond}, clock)
	e := newDirectEntry(p, 1)

	clock.Advance(80 * time.Millisecond)
	_, ok := e.value(true)
	assert.True(t, ok)
	clock.Advance(80 * time.Millisecond)
	assert.False(t, e.timedOut())
	_, ok = e.value(false)
	assert.True(t, ok)
	clock.Advance(30 * time.Millisecond)
	assert.True(t, e.timedOut())
}

func TestEntryZeroAndNegativeTimeout(t *testing.T) {
	clock := newFakeClock()
	never := newDirectEntry(newPolicy(Config{CleanupInterval: time.Second}, clock), 1)
	always := newDirectEntry(newPolicy(Config{Timeout: -1}, clock), 1)

	clock.Advance(24 * 365 * time.Hour)
	assert.False(t, never.timedOut())
	assert.False(t, never.canBeEvicted())
	assert.True(t, always.timedOut())
	_, ok := always.value(false)
	assert.False(t, ok)
}

func TestDeferredEntryRetainsUntilReclaimed(t *testing.T) {
	disableGC(t)
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 10 * time.Millisecond, DeferredReclaim: true, RetainAfterExpiry: true}, clock)
	e := newDeferredEntry(p, newBlob(7))

	runtime.GC()
	v, ok := e.value(false)
	assert.True(t, ok, "pinned value must survive collection")
	assert.Equal(t, 7, v.id)
	v = nil

	clock.Advance(20 * time.Millisecond)
	assert.True(t, e.timedOut())
	assert.False(t, e.canBeEvicted(), "timed out but not reclaimed yet")
	_, ok = e.value(false)
	assert.True(t, ok, "retained after expiry")

	runtime.GC()
	_, ok = e.value(false)
	assert.False(t, ok)
	assert.True(t, e.canBeEvicted())
}

func TestDeferredEntryTimerDropsPin(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 10 * time.Millisecond, DeferredReclaim: true, RetainAfterExpiry: true}, clock)
	e := newDeferredEntry(p, newBlob(1)).(*deferredEntry[blob])
	assert.True(t, e.data.pinned())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(10 * time.Millisecond)
	assert.True(t, e.data.pinned(), "not timed out at exactly the timeout")
	clock.Advance(time.Nanosecond)
	assert.False(t, e.data.pinned(), "dropped without anyone reading the entry")
	assert.Equal(t, 0, clock.Pending())
}

func TestDeferredEntryDiscardStopsTimer(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: time.Minute, DeferredReclaim: true, RetainAfterExpiry: true}, clock)
	e := newDeferredEntry(p, newBlob(1)).(*deferredEntry[blob])
	e.discard()
	assert.False(t, e.data.pinned())
	assert.Equal(t, 0, clock.Pending())
}

func TestDeferredEntryRefreshRepins(t *testing.T) {
	disableGC(t)
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 10 * time.Millisecond, DeferredReclaim: true, RetainAfterExpiry: true}, clock)
	e := newDeferredEntry(p, newBlob(1))

	clock.Advance(20 * time.Millisecond)
	assert.Equal(t, 0, clock.Pending())
	_, ok := e.value(true)
	assert.True(t, ok)
	assert.False(t, e.timedOut())
	assert.Equal(t, 1, clock.Pending(), "refresh arms a new timer")

	runtime.GC()
	_, ok = e.value(false)
	assert.True(t, ok, "refresh must pin the value again")
}

func TestDeferredEntryWithoutRetain(t *testing.T) {
	disableGC(t)
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 10 * time.Millisecond, DeferredReclaim: true}, clock)

	b := newBlob(1)
	e := newDeferredEntry(p, b)
	assert.Equal(t, 0, clock.Pending(), "nothing to unpin")
	runtime.GC()
	v, ok := e.value(false)
	assert.True(t, ok, "the caller still holds the value")
	assert.Same(t, b, v)
	clock.Advance(20 * time.Millisecond)
	_, ok = e.value(false)
	assert.False(t, ok, "timed out entries are unreadable without retain")
	assert.True(t, e.canBeEvicted())
	runtime.KeepAlive(b)

	e = newDeferredEntry(p, newBlob(2))
	runtime.GC()
	_, ok = e.value(false)
	assert.False(t, ok, "unpinned values may be reclaimed before the timeout")
	assert.False(t, e.canBeEvicted())
}

func TestDeferredEntryNilValue(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: 10 * time.Millisecond, DeferredReclaim: true, RetainAfterExpiry: true}, clock)
	e := newDeferredEntry[blob](p, nil)

	v, ok := e.value(true)
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.False(t, e.canBeEvicted())
	clock.Advance(20 * time.Millisecond)
	assert.True(t, e.canBeEvicted())
}

func TestRetainIgnoredWithoutDeferredReclaim(t *testing.T) {
	clock := newFakeClock()
	p := newPolicy(Config{Timeout: time.Second, RetainAfterExpiry: true}, clock)
	assert.False(t, p.retain)
}

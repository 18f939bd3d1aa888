package cache

import (
	"runtime/debug"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/go-timedcache/logger"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs the timers that became due, on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.done:
		case !t.at.After(c.now):
			t.done = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have not run or been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func newTestCache[V any](t *testing.T, cfg Config, opts ...Option) *Timed[string, V] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)
	c, err := New[string, V](cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c
}

func newDeferredTestCache[T any](t *testing.T, cfg Config, opts ...Option) *Timed[string, *T] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)
	c, err := NewDeferred[string, T](cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c
}

// disableGC turns off automatic collection so that values held through weak
// pointers are only reclaimed when the test calls runtime.GC.
func disableGC(t *testing.T) {
	t.Helper()
	prev := debug.SetGCPercent(-1)
	t.Cleanup(func() { debug.SetGCPercent(prev) })
}

type blob struct {
	id   int
	data []byte
}

func newBlob(id int) *blob {
	return &blob{id: id, data: make([]byte, 1024)}
}

// putBlob stores a fresh blob that nothing but the cache refers to.
//
//go:noinline
func putBlob(t *testing.T, c *Timed[string, *blob], key string, id int) {
	t.Helper()
	_, err := c.Put(key, newBlob(id))
	require.NoError(t, err)
}

// peekBlob reads key without handing the value back to the caller, so the
// test itself never keeps the blob alive.
//
//go:noinline
func peekBlob(c *Timed[string, *blob], key string) (found bool, id int) {
	found, b, _ := c.Get(key)
	if found {
		id = b.id
	}
	return found, id
}

package main

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/agentuity/go-timedcache/cache"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type workload struct {
	keys      []string
	workers   int
	duration  time.Duration
	valueSize int
}

func newWorkload(cfg benchConfig) (*workload, error) {
	size, err := cfg.valueBytes()
	if err != nil {
		return nil, err
	}
	keys := make([]string, cfg.Keys)
	for i := range keys {
		keys[i] = uuid.NewString()
	}
	return &workload{
		keys:      keys,
		workers:   cfg.Workers,
		duration:  time.Duration(cfg.Duration),
		valueSize: size,
	}, nil
}

// payload is the cached value. Values are pointers so the same workload runs
// against caches built with cache.NewDeferred.
type payload struct {
	data []byte
}

func (w *workload) newPayload() *payload {
	return &payload{data: make([]byte, w.valueSize)}
}

type workloadResult struct {
	ops     int64
	loads   int64
	elapsed time.Duration
}

func (r workloadResult) opsPerSecond() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.ops) / r.elapsed.Seconds()
}

// run hammers c from every worker until the duration elapses or ctx is
// cancelled. Most operations are read-through loads; the rest are plain reads
// and overwrites.
func (w *workload) run(ctx context.Context, c cache.Cache[string, *payload]) (workloadResult, error) {
	var ops, loads atomic.Int64
	load := func(string) (*payload, error) {
		loads.Add(1)
		return w.newPayload(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.duration)
	defer cancel()
	started := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				key := w.keys[rand.IntN(len(w.keys))]
				var err error
				switch n := rand.IntN(10); {
				case n < 7:
					_, err = c.ComputeIfAbsent(key, load)
				case n < 9:
					_, _, err = c.Get(key)
				default:
					_, err = c.Put(key, w.newPayload())
				}
				if err != nil {
					return err
				}
				ops.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return workloadResult{ops: ops.Load(), loads: loads.Load(), elapsed: time.Since(started)}, err
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/agentuity/go-timedcache/logger"
)

// sweeper periodically removes evictable entries on its own goroutine.
type sweeper struct {
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	interval  time.Duration
	sweep     func() int
	logger    logger.Logger
}

func startSweeper(interval time.Duration, log logger.Logger, sweep func() int) *sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		sweep:    sweep,
		logger:   log,
	}
	s.waitGroup.Add(1)
	go s.run()
	return s
}

func (s *sweeper) run() {
	defer s.waitGroup.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			removed := s.sweep()
			if removed > 0 && s.logger.IsTraceEnabled() {
				s.logger.Trace("swept %d entries in %v", removed, time.Since(started))
			}
		}
	}
}

// stop cancels the loop and waits for an in-progress sweep to finish. It is
// safe to call more than once.
func (s *sweeper) stop() {
	s.once.Do(func() {
		s.cancel()
		s.waitGroup.Wait()
	})
}

package cache

import (
	"time"

	"github.com/agentuity/go-timedcache/logger"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the expiry policy of a cache. It is copied by New and never
// changes afterwards.
type Config struct {
	// Timeout is the age after which an entry can no longer be read.
	// Zero means entries never expire by time. A negative value means
	// nothing is ever stored.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// CleanupInterval is the period of the background sweep. Values below
	// one nanosecond disable the sweep, in which case expired entries are
	// only removed when they are accessed.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// RefreshOnAccess resets an entry's age every time it is successfully read.
	RefreshOnAccess bool `yaml:"refresh_on_access" json:"refresh_on_access"`

	// RetainAfterExpiry keeps a timed out entry readable until the garbage
	// collector reclaims its value. Only meaningful with DeferredReclaim.
	RetainAfterExpiry bool `yaml:"retain_after_expiry" json:"retain_after_expiry"`

	// DeferredReclaim stores values behind weak references so the garbage
	// collector may reclaim them independently of Timeout. It requires
	// pointer values and is only accepted by NewDeferred.
	DeferredReclaim bool `yaml:"deferred_reclaim" json:"deferred_reclaim"`
}

// Validate reports whether the combination of options is usable.
func (c Config) Validate() error {
	if c.Timeout == 0 && !c.DeferredReclaim && c.CleanupInterval < 1 {
		return errors.Wrap(ErrInvalidConfiguration, "timeout of 0 without deferred reclaim or a cleanup interval never evicts anything")
	}
	return nil
}

func (c Config) sweeps() bool {
	return c.CleanupInterval >= 1
}

// Clock provides the current time and timers. The default uses the time
// package.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending call scheduled by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the call from running. It reports false when the call
	// already ran or was stopped before.
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultShards is the number of shards used when WithShards is not given.
const DefaultShards = 32

// options holds the resolved non-policy settings of a cache.
type options struct {
	logger logger.Logger
	clock  Clock
	shards int
	name   string
	meter  metric.Meter
}

// Option configures a cache created by New.
type Option func(*options)

func defaultOptions() options {
	return options{
		clock:  realClock{},
		shards: DefaultShards,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger()
	}
	return o
}

// WithLogger sets the logger used for lifecycle and sweep messages.
// Defaults to a console logger whose level comes from TIMEDCACHE_LOG_LEVEL.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the time source used for expiry decisions. The background
// sweep still ticks on wall-clock time.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithShards sets how many shards the store is split into. It is rounded up
// to a power of two. Defaults to DefaultShards.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithName sets the name used in log prefixes and metric attributes.
// Defaults to a random uuid.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMeter registers observable instruments for the cache statistics on m.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterPrefix = "timedcache."

// registerMetrics exposes stats and the store size as observable instruments.
// The returned registration must be released when the cache shuts down.
func registerMetrics(m metric.Meter, name string, stats *Stats, size func() int) (metric.Registration, error) {
	hits, err := m.Int64ObservableCounter(meterPrefix+"hits", metric.WithDescription("Reads that found a readable value"))
	if err != nil {
		return nil, errors.Wrap(err, "cache: creating hits counter")
	}
	misses, err := m.Int64ObservableCounter(meterPrefix+"misses", metric.WithDescription("Reads that found nothing readable"))
	if err != nil {
		return nil, errors.Wrap(err, "cache: creating misses counter")
	}
	loads, err := m.Int64ObservableCounter(meterPrefix+"loads", metric.WithDescription("Compute function invocations"))
	if err != nil {
		return nil, errors.Wrap(err, "cache: creating loads counter")
	}
	evictions, err := m.Int64ObservableCounter(meterPrefix+"evictions", metric.WithDescription("Entries removed after expiry or reclamation"))
	if err != nil {
		return nil, errors.Wrap(err, "cache: creating evictions counter")
	}
	entries, err := m.Int64ObservableGauge(meterPrefix+"size", metric.WithDescription("Slots in the store, including expired entries not yet swept"))
	if err != nil {
		return nil, errors.Wrap(err, "cache: creating size gauge")
	}
	attrs := metric.WithAttributes(attribute.String("cache", name))
	reg, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats.Snapshot()
		o.ObserveInt64(hits, s.Hits, attrs)
		o.ObserveInt64(misses, s.Misses, attrs)
		o.ObserveInt64(loads, s.Loads, attrs)
		o.ObserveInt64(evictions, s.Evictions, attrs)
		o.ObserveInt64(entries, int64(size()), attrs)
		return nil
	}, hits, misses, loads, evictions, entries)
	if err != nil {
		return nil, errors.Wrap(err, "cache: registering metrics callback")
	}
	return reg, nil
}

// Package cache provides an expiring in-memory result cache that wraps a
// source fetcher behind the same aggregate contract.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/pipeline"
	"github.com/Aman-CERP/rabbithole/internal/telemetry"
)

// Fetcher wraps an inner pipeline fetcher with an expirable LRU. Results
// are cached per (source, query, limit); entries expire after the TTL or
// under LRU pressure. Safe for concurrent use.
type Fetcher struct {
	inner   pipeline.Fetcher
	entries *expirable.LRU[string, []pipeline.Candidate]
	metrics *telemetry.Collector
	logger  *slog.Logger
}

// Option configures a cache Fetcher.
type Option func(*Fetcher)

// WithMetrics attaches a telemetry collector for cache hit counters.
func WithMetrics(m *telemetry.Collector) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithLogger sets the cache's logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// Wrap decorates inner with result caching.
func Wrap(inner pipeline.Fetcher, size int, ttl time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		inner:   inner,
		entries: expirable.NewLRU[string, []pipeline.Candidate](size, nil, ttl),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(
		slog.String("component", "cache"),
		slog.String("source", string(inner.Source())))
	return f
}

// Source identifies the wrapped pipeline.
func (f *Fetcher) Source() pipeline.Source {
	return f.inner.Source()
}

// Aggregate serves from the cache when possible, otherwise delegates and
// stores the result. Returned slices are cloned both ways so callers can
// never mutate a cached entry.
func (f *Fetcher) Aggregate(ctx context.Context, query string, limit int) []pipeline.Candidate {
	key := cacheKey(f.inner.Source(), query, limit)

	if cached, ok := f.entries.Get(key); ok {
		f.logger.Debug("cache_hit", slog.String("query", query), slog.Int("limit", limit))
		if f.metrics != nil {
			f.metrics.RecordCacheHit(string(f.inner.Source()))
		}
		return cloneCandidates(cached)
	}

	results := f.inner.Aggregate(ctx, query, limit)
	f.entries.Add(key, cloneCandidates(results))
	return results
}

// Purge drops every cached entry.
func (f *Fetcher) Purge() {
	f.entries.Purge()
}

// Len reports the number of live cache entries.
func (f *Fetcher) Len() int {
	return f.entries.Len()
}

func cacheKey(source pipeline.Source, query string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", source, query, limit)))
	return hex.EncodeToString(sum[:])
}

// cloneCandidates copies the slice and each candidate's Metadata map, so
// a caller editing a returned candidate cannot reach into the cache.
// Metadata values are treated as immutable.
func cloneCandidates(in []pipeline.Candidate) []pipeline.Candidate {
	if in == nil {
		return nil
	}
	out := make([]pipeline.Candidate, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Metadata == nil {
			continue
		}
		meta := make(map[string]any, len(out[i].Metadata))
		for k, v := range out[i].Metadata {
			meta[k] = v
		}
		out[i].Metadata = meta
	}
	return out
}

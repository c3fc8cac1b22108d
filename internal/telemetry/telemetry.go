// Package telemetry provides in-memory per-source aggregation metrics.
// All data stays in process - no external reporting.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Aggregation Event
// =============================================================================

// Aggregation describes one completed aggregation call.
type Aggregation struct {
	// RawCandidates is how many candidates all strategies produced together.
	RawCandidates int
	// Results is how many candidates were returned to the caller.
	Results int
	// Fallback is true when the synthetic placeholder was returned.
	Fallback bool
	// Duration is the end-to-end pipeline latency.
	Duration time.Duration
}

// =============================================================================
// Circular Buffer
// =============================================================================

// circularBuffer is a fixed-capacity FIFO buffer of recent durations,
// used for latency quantiles without unbounded memory.
type circularBuffer struct {
	items    []time.Duration
	head     int // next write position
	size     int
	capacity int
}

func newCircularBuffer(capacity int) *circularBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &circularBuffer{
		items:    make([]time.Duration, capacity),
		capacity: capacity,
	}
}

func (b *circularBuffer) add(d time.Duration) {
	b.items[b.head] = d
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// snapshot returns the buffered durations in FIFO order (oldest first).
func (b *circularBuffer) snapshot() []time.Duration {
	if b.size == 0 {
		return nil
	}
	out := make([]time.Duration, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
	} else {
		copy(out, b.items[b.head:])
		copy(out[b.capacity-b.head:], b.items[:b.head])
	}
	return out
}

// =============================================================================
// Per-source Stats
// =============================================================================

// SourceStats is a point-in-time view of one source's counters.
type SourceStats struct {
	Calls             int64         `json:"calls"`
	Fallbacks         int64         `json:"fallbacks"`
	CacheHits         int64         `json:"cache_hits"`
	RawCandidates     int64         `json:"raw_candidates"`
	Results           int64         `json:"results"`
	StrategySuccesses int64         `json:"strategy_successes"`
	StrategyFailures  int64         `json:"strategy_failures"`
	P50Latency        time.Duration `json:"p50_latency"`
	P95Latency        time.Duration `json:"p95_latency"`
}

// sourceCounters accumulates one source's metrics. Guarded by Collector.mu.
type sourceCounters struct {
	calls             int64
	fallbacks         int64
	cacheHits         int64
	rawCandidates     int64
	results           int64
	strategySuccesses int64
	strategyFailures  int64
	latencies         *circularBuffer
}

// =============================================================================
// Collector
// =============================================================================

// DefaultLatencyWindow is how many recent latencies are kept per source.
const DefaultLatencyWindow = 200

// Collector accumulates aggregation metrics per source.
// Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	window  int
	sources map[string]*sourceCounters
}

// NewCollector creates an empty metrics collector.
func NewCollector() *Collector {
	return &Collector{
		window:  DefaultLatencyWindow,
		sources: make(map[string]*sourceCounters),
	}
}

func (c *Collector) counters(source string) *sourceCounters {
	sc, ok := c.sources[source]
	if !ok {
		sc = &sourceCounters{latencies: newCircularBuffer(c.window)}
		c.sources[source] = sc
	}
	return sc
}

// RecordAggregation records one completed aggregation call.
func (c *Collector) RecordAggregation(source string, agg Aggregation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc := c.counters(source)
	sc.calls++
	sc.rawCandidates += int64(agg.RawCandidates)
	sc.results += int64(agg.Results)
	if agg.Fallback {
		sc.fallbacks++
	}
	sc.latencies.add(agg.Duration)
}

// RecordCacheHit records a result served from the cache.
func (c *Collector) RecordCacheHit(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters(source).cacheHits++
}

// RecordStrategy records one strategy run's outcome.
func (c *Collector) RecordStrategy(source string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc := c.counters(source)
	if success {
		sc.strategySuccesses++
	} else {
		sc.strategyFailures++
	}
}

// Snapshot returns a point-in-time copy of every source's stats.
func (c *Collector) Snapshot() map[string]SourceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]SourceStats, len(c.sources))
	for name, sc := range c.sources {
		p50, p95 := quantiles(sc.latencies.snapshot())
		out[name] = SourceStats{
			Calls:             sc.calls,
			Fallbacks:         sc.fallbacks,
			CacheHits:         sc.cacheHits,
			RawCandidates:     sc.rawCandidates,
			Results:           sc.results,
			StrategySuccesses: sc.strategySuccesses,
			StrategyFailures:  sc.strategyFailures,
			P50Latency:        p50,
			P95Latency:        p95,
		}
	}
	return out
}

// Reset clears all accumulated metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = make(map[string]*sourceCounters)
}

// quantiles computes the p50 and p95 of the given latency window.
func quantiles(latencies []time.Duration) (p50, p95 time.Duration) {
	if len(latencies) == 0 {
		return 0, 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := func(q float64) int {
		i := int(q * float64(len(sorted)-1))
		if i < 0 {
			i = 0
		}
		if i >= len(sorted) {
			i = len(sorted) - 1
		}
		return i
	}
	return sorted[idx(0.50)], sorted[idx(0.95)]
}

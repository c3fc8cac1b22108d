package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAggregation(t *testing.T) {
	// Given: a fresh collector
	c := NewCollector()

	// When: recording two calls for one source, one of them a fallback
	c.RecordAggregation("reddit", Aggregation{RawCandidates: 12, Results: 5, Duration: 100 * time.Millisecond})
	c.RecordAggregation("reddit", Aggregation{RawCandidates: 0, Results: 1, Fallback: true, Duration: 50 * time.Millisecond})

	// Then: the snapshot reflects both
	snap := c.Snapshot()
	require.Contains(t, snap, "reddit")
	stats := snap["reddit"]
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(1), stats.Fallbacks)
	assert.Equal(t, int64(12), stats.RawCandidates)
	assert.Equal(t, int64(6), stats.Results)
	assert.Positive(t, stats.P50Latency)
}

func TestCollector_SourcesAreIndependent(t *testing.T) {
	c := NewCollector()

	c.RecordAggregation("medium", Aggregation{Results: 3})
	c.RecordCacheHit("wikipedia")

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap["medium"].Calls)
	assert.Equal(t, int64(0), snap["medium"].CacheHits)
	assert.Equal(t, int64(1), snap["wikipedia"].CacheHits)
	assert.Equal(t, int64(0), snap["wikipedia"].Calls)
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.RecordAggregation("youtube", Aggregation{Results: 2})

	c.Reset()

	assert.Empty(t, c.Snapshot())
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	// Given: many goroutines recording against the same source
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordAggregation("reddit", Aggregation{Results: 1, Duration: time.Millisecond})
			c.RecordCacheHit("reddit")
		}()
	}
	wg.Wait()

	// Then: no recordings are lost
	stats := c.Snapshot()["reddit"]
	assert.Equal(t, int64(50), stats.Calls)
	assert.Equal(t, int64(50), stats.CacheHits)
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	b := newCircularBuffer(3)
	for i := 1; i <= 5; i++ {
		b.add(time.Duration(i))
	}

	// Only the 3 newest survive, oldest first.
	assert.Equal(t, []time.Duration{3, 4, 5}, b.snapshot())
}

func TestQuantiles_EmptyWindow(t *testing.T) {
	p50, p95 := quantiles(nil)
	assert.Equal(t, time.Duration(0), p50)
	assert.Equal(t, time.Duration(0), p95)
}

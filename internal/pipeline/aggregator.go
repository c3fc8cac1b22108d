package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/telemetry"
)

// Aggregator orchestrates one source's end-to-end pipeline:
// run strategies → rank/dedup → fallback when empty → truncate to limit.
//
// Aggregate never returns an error and never returns an empty slice: any
// failure anywhere in the pipeline degrades to the synthetic fallback
// result. Each call builds its state fresh, so one Aggregator is safe for
// concurrent use.
type Aggregator struct {
	profile Profile
	runner  *Runner

	defaultLimit   int
	maxLimit       int
	overallTimeout time.Duration

	logger  *slog.Logger
	metrics *telemetry.Collector
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLimits sets the default and maximum result limits.
func WithLimits(defaultLimit, maxLimit int) AggregatorOption {
	return func(a *Aggregator) {
		if defaultLimit > 0 {
			a.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			a.maxLimit = maxLimit
		}
	}
}

// WithOverallTimeout bounds one aggregation call end to end.
func WithOverallTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.overallTimeout = d
		}
	}
}

// WithLogger sets the aggregator's logger.
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics attaches a telemetry collector.
func WithMetrics(m *telemetry.Collector) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates the pipeline orchestrator for one source profile.
// Defaults: limit 5 (max 25), 30 second overall timeout.
func NewAggregator(profile Profile, runner *Runner, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		profile:        profile,
		runner:         runner,
		defaultLimit:   5,
		maxLimit:       25,
		overallTimeout: 30 * time.Second,
		logger:         logging.Discard(),
	}
	if a.runner == nil {
		a.runner = NewRunner()
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("component", "aggregator"), slog.String("source", string(profile.Source)))
	return a
}

// Source identifies the pipeline.
func (a *Aggregator) Source() Source {
	return a.profile.Source
}

// Aggregate runs the full pipeline for one query and returns between 1 and
// limit candidates. A limit <= 0 selects the default; limits above the
// configured maximum are clamped.
func (a *Aggregator) Aggregate(ctx context.Context, query string, limit int) (results []Candidate) {
	start := time.Now()
	requestID := uuid.NewString()
	log := a.logger.With(slog.String("request_id", requestID))

	if limit <= 0 {
		limit = a.defaultLimit
	}
	if limit > a.maxLimit {
		limit = a.maxLimit
	}

	// The non-throwing contract: anything escaping a component becomes the
	// fallback result rather than a caller-visible failure.
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("pipeline_panic",
				slog.String("query", query),
				slog.Any("panic", rec))
			results = []Candidate{Fallback(a.profile.Source, a.profile.FallbackDescription)}
			a.record(query, 0, results, time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.overallTimeout)
	defer cancel()

	q := NewQuery(query)

	raw := a.runner.Run(ctx, q, limit, a.profile.Strategies)
	ranked := Rank(raw, q, a.profile.Score)

	if len(ranked) == 0 {
		results = []Candidate{Fallback(a.profile.Source, a.profile.FallbackDescription)}
	} else if len(ranked) > limit {
		results = ranked[:limit]
	} else {
		results = ranked
	}

	log.Debug("aggregation_complete",
		slog.String("query", q.Raw),
		slog.Int("limit", limit),
		slog.Int("raw_candidates", len(raw)),
		slog.Int("ranked", len(ranked)),
		slog.Int("results", len(results)),
		slog.Bool("fallback", len(ranked) == 0),
		slog.Duration("duration", time.Since(start)))

	a.record(query, len(raw), results, time.Since(start))
	return results
}

func (a *Aggregator) record(query string, rawCount int, results []Candidate, d time.Duration) {
	if a.metrics == nil {
		return
	}
	fallback := len(results) == 1 && results[0].IsFallback()
	a.metrics.RecordAggregation(string(a.profile.Source), telemetry.Aggregation{
		RawCandidates: rawCount,
		Results:       len(results),
		Fallback:      fallback,
		Duration:      d,
	})
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/rabbithole/internal/logging"
	"github.com/Aman-CERP/rabbithole/internal/telemetry"
)

// Runner executes a source's strategies against one query, isolating
// failures per strategy. Strategies run concurrently under a semaphore;
// results are collected per slot so the flattened output preserves
// strategy-list order regardless of completion order.
type Runner struct {
	parallelism     int
	strategyTimeout time.Duration
	logger          *slog.Logger
	metrics         *telemetry.Collector
	metricsSource   string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithParallelism sets the maximum number of concurrently running strategies.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithStrategyTimeout bounds a single strategy's run.
func WithStrategyTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.strategyTimeout = d
		}
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRunnerMetrics records per-strategy outcomes under the given source.
func WithRunnerMetrics(m *telemetry.Collector, source Source) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
		r.metricsSource = string(source)
	}
}

// NewRunner creates a strategy runner.
// Defaults: 4 parallel strategies, 8 second per-strategy timeout.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		parallelism:     4,
		strategyTimeout: 8 * time.Second,
		logger:          logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes every strategy and returns all candidates in one flat slice,
// ordered by strategy-list position. A failing, panicking, or timed-out
// strategy contributes nothing and never cancels its siblings; Run itself
// never fails — all strategies failing yields an empty slice, which the
// aggregator routes to the fallback generator.
func (r *Runner) Run(ctx context.Context, q Query, hint int, strategies []Strategy) []Candidate {
	if len(strategies) == 0 {
		return nil
	}

	// Per-slot collection keeps output deterministic across completion orders.
	slots := make([][]Candidate, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, r.parallelism)

	for i, st := range strategies {
		i, st := i, st

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return nil
			}

			sctx, cancel := context.WithTimeout(gctx, r.strategyTimeout)
			defer cancel()

			start := time.Now()
			candidates, err := r.runStrategy(sctx, st, q, hint)
			if r.metrics != nil {
				r.metrics.RecordStrategy(r.metricsSource, err == nil)
			}
			if err != nil {
				// Strategy failure is expected operation, not a pipeline error.
				r.logger.Debug("strategy_failed",
					slog.String("strategy", st.Name),
					slog.String("query", q.Raw),
					slog.String("error", err.Error()),
					slog.Duration("duration", time.Since(start)))
				return nil
			}

			for j := range candidates {
				if candidates[j].Strategy == "" {
					candidates[j].Strategy = st.Name
				}
			}
			slots[i] = candidates

			r.logger.Debug("strategy_complete",
				slog.String("strategy", st.Name),
				slog.String("query", q.Raw),
				slog.Int("candidates", len(candidates)),
				slog.Duration("duration", time.Since(start)))
			return nil
		})
	}

	// Goroutines only ever return nil; Wait is just a join point.
	_ = g.Wait()

	var all []Candidate
	for _, slot := range slots {
		all = append(all, slot...)
	}
	return all
}

// runStrategy executes one strategy, converting panics into errors so a
// misbehaving adapter can never take down sibling strategies.
func (r *Runner) runStrategy(ctx context.Context, st Strategy, q Query, hint int) (candidates []Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			candidates = nil
			err = fmt.Errorf("strategy %s panicked: %v", st.Name, rec)
		}
	}()

	return st.Fetch(ctx, q, hint)
}

package pipeline

import "context"

// FetchFunc is one search strategy's fetch function. It returns the
// candidates the strategy found (already quality-filtered by the adapter)
// or an error; errors never cross the runner boundary into the result set.
type FetchFunc func(ctx context.Context, q Query, hint int) ([]Candidate, error)

// Strategy is one named probe against a source: a distinct endpoint or
// query-rewrite variation with its own parsing path.
type Strategy struct {
	Name  string
	Fetch FetchFunc
}

// ScoreFunc computes a candidate's relevance score for a query. It is a
// pure function used only for ordering among accepted candidates; ranking
// additionally discards candidates whose score is not strictly positive.
type ScoreFunc func(c Candidate, q Query) int

// Profile bundles everything the generic pipeline needs to run one source:
// the strategy list, the scoring function, and the fallback description.
// The four source integrations differ only in these pieces.
type Profile struct {
	// Source tags the pipeline's output.
	Source Source

	// Strategies are invoked in order (concurrently) by the runner.
	Strategies []Strategy

	// Score ranks accepted candidates.
	Score ScoreFunc

	// FallbackDescription is used for the synthetic placeholder when the
	// ranked sequence is empty.
	FallbackDescription string
}

// Fetcher runs a complete per-source pipeline. Implemented by Aggregator
// and by decorators such as the result cache.
type Fetcher interface {
	// Aggregate returns between 1 and limit candidates for the query.
	// It never fails: degraded input yields the fallback placeholder.
	Aggregate(ctx context.Context, query string, limit int) []Candidate

	// Source identifies the pipeline.
	Source() Source
}

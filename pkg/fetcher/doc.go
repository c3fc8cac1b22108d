// Package fetcher is the public entry point for aggregating educational
// content from Medium, Reddit, Wikipedia, and YouTube.
//
// Each source runs its own multi-strategy pipeline: strategies fetch
// concurrently, hits pass a source-specific quality filter, survivors are
// scored and deduplicated by URL, and an empty outcome degrades to a single
// synthetic placeholder rather than an error.
//
// # Usage
//
//	svc, err := fetcher.New(
//	    fetcher.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// One source.
//	articles, err := svc.SearchMedium(ctx, "go concurrency", 5)
//
//	// All four sources concurrently; results stay per-source.
//	all, err := svc.SearchAll(ctx, "go concurrency", 5)
//	for source, results := range all {
//	    fmt.Println(source, len(results))
//	}
//
// The only errors a Service returns are construction errors and query
// validation errors (empty query, query over 500 runes, unknown source).
// Upstream failures never surface: a source that produced nothing returns
// its fallback placeholder.
//
// Without WithLogger the service builds its logger from the logging
// section of the layered configuration; call Close when done so a
// configured log file is flushed and closed. InitUserConfig writes the
// annotated configuration template to the XDG config path.
//
// # Thread Safety
//
// A Service is safe for concurrent use. Aggregation calls share no
// per-call state.
package fetcher

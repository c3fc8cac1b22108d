// Package pipeline implements the per-source aggregation pipeline:
// multi-strategy fetch, relevance ranking, URL deduplication, and the
// synthetic fallback used when nothing survives.
package pipeline

import "fmt"

// Source identifies one of the supported content sources.
type Source string

const (
	SourceMedium    Source = "medium"
	SourceReddit    Source = "reddit"
	SourceWikipedia Source = "wikipedia"
	SourceYouTube   Source = "youtube"
)

// String returns the source tag.
func (s Source) String() string {
	return string(s)
}

// DisplayName returns the human-facing source name used in metadata
// and descriptions.
func (s Source) DisplayName() string {
	switch s {
	case SourceMedium:
		return "Medium"
	case SourceReddit:
		return "Reddit"
	case SourceWikipedia:
		return "Wikipedia"
	case SourceYouTube:
		return "YouTube"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceMedium, SourceReddit, SourceWikipedia, SourceYouTube:
		return true
	default:
		return false
	}
}

// Sources lists every supported source in a stable order.
func Sources() []Source {
	return []Source{SourceMedium, SourceReddit, SourceWikipedia, SourceYouTube}
}

// ParseSource converts a string tag to a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// Candidate is a normalized search hit from one source.
//
// URL is the deduplication key: of two candidates sharing a non-empty URL
// only the higher-scored survives ranking. An empty URL marks a synthetic
// fallback candidate, which is never deduplicated. Candidates are treated
// as immutable once built; scoring never modifies them.
type Candidate struct {
	// Title is the non-empty display string.
	Title string

	// URL is the unique identity key; empty only for fallback candidates.
	URL string

	// Description is a human-readable, source-formatted summary.
	Description string

	// Source tags which pipeline produced the candidate.
	Source Source

	// Metadata carries source-specific attributes (upvotes, view counts,
	// section lists, ...). The core reads it only through the typed
	// accessors below.
	Metadata map[string]any

	// Strategy names the strategy that produced the candidate.
	// Diagnostics only; never consulted for ranking.
	Strategy string
}

// IsFallback reports whether the candidate is the synthetic placeholder.
func (c Candidate) IsFallback() bool {
	b, _ := c.Metadata["fallback"].(bool)
	return b
}

// MetaInt returns an integer metadata value, tolerating the numeric types
// that JSON decoding and hand-built maps produce.
func (c Candidate) MetaInt(key string) int {
	switch v := c.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// MetaBool returns a boolean metadata value.
func (c Candidate) MetaBool(key string) bool {
	b, _ := c.Metadata[key].(bool)
	return b
}

// MetaString returns a string metadata value.
func (c Candidate) MetaString(key string) string {
	s, _ := c.Metadata[key].(string)
	return s
}

// MetaStrings returns a string-slice metadata value, tolerating []any.
func (c Candidate) MetaStrings(key string) []string {
	switch v := c.Metadata[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

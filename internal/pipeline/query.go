package pipeline

import "strings"

// Query is the aggregation input: the raw query plus its lowercased
// whitespace-split tokens, computed once per call and shared read-only by
// every filter and scorer in the pipeline.
type Query struct {
	// Raw is the trimmed original query.
	Raw string

	// Lower is the lowercased form of Raw.
	Lower string

	// Tokens are the lowercased whitespace-split query words.
	Tokens []string
}

// NewQuery tokenizes a raw query string.
func NewQuery(raw string) Query {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	return Query{
		Raw:    raw,
		Lower:  lower,
		Tokens: strings.Fields(lower),
	}
}

// Empty reports whether the query carries no usable tokens.
func (q Query) Empty() bool {
	return len(q.Tokens) == 0
}

// CountTokensIn returns how many query tokens occur in text
// (case-insensitive substring match, matching tokens counted once each).
func (q Query) CountTokensIn(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, tok := range q.Tokens {
		if strings.Contains(lower, tok) {
			n++
		}
	}
	return n
}

// AnyTokenIn reports whether at least one query token occurs in text.
func (q Query) AnyTokenIn(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range q.Tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any of the keywords occurs in text
// (case-insensitive substring match).
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CountKeywords returns how many of the keywords occur in text.
func CountKeywords(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

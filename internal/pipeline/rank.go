package pipeline

import "sort"

// scored pairs a candidate with its computed score for ranking.
type scored struct {
	candidate Candidate
	score     int
}

// Rank scores every candidate once, stable-sorts descending by score
// (encounter order preserved among ties), then walks the sorted sequence
// keeping the first occurrence of each distinct non-empty URL and skipping
// any candidate whose score is not strictly positive.
//
// The stable sort plus first-wins dedup guarantees that for any URL seen by
// multiple strategies, the surviving copy is the one whose parsing path
// produced the highest relevance score, with ties broken by encounter order.
// Candidates with empty URLs are never compared for duplication.
//
// Rank is deterministic for a fixed input and allocates its seen-URL set
// fresh per call, so concurrent aggregations never share state.
func Rank(candidates []Candidate, q Query, score ScoreFunc) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	items := make([]scored, len(candidates))
	for i, c := range candidates {
		items[i] = scored{candidate: c, score: score(c, q)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	seen := make(map[string]struct{}, len(items))
	ranked := make([]Candidate, 0, len(items))

	for _, item := range items {
		if item.score <= 0 {
			// Sorted descending: everything from here on is non-positive.
			break
		}
		if item.candidate.URL != "" {
			if _, dup := seen[item.candidate.URL]; dup {
				continue
			}
			seen[item.candidate.URL] = struct{}{}
		}
		ranked = append(ranked, item.candidate)
	}

	return ranked
}

package pipeline

// FallbackTitle is the fixed, recognizable placeholder title.
const FallbackTitle = "Sorry peeps nothing to see here"

// Fallback builds the singleton synthetic candidate emitted when a
// pipeline's ranked sequence is empty. The URL is empty by contract and the
// metadata carries a flag marking the result as synthetic. It is used only
// for genuinely empty pipelines, never merely because results are few.
func Fallback(source Source, description string) Candidate {
	return Candidate{
		Title:       FallbackTitle,
		URL:         "",
		Description: description,
		Source:      source,
		Metadata: map[string]any{
			"source":   source.DisplayName(),
			"fallback": true,
		},
		Strategy: "fallback",
	}
}

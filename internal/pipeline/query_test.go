package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuery_Tokenizes(t *testing.T) {
	q := NewQuery("  Learn Go  Quickly ")

	assert.Equal(t, "Learn Go  Quickly", q.Raw)
	assert.Equal(t, "learn go  quickly", q.Lower)
	assert.Equal(t, []string{"learn", "go", "quickly"}, q.Tokens)
}

func TestQuery_Empty(t *testing.T) {
	assert.True(t, NewQuery("").Empty())
	assert.True(t, NewQuery("   \t ").Empty())
	assert.False(t, NewQuery("go").Empty())
}

func TestQuery_CountTokensIn(t *testing.T) {
	q := NewQuery("learn go concurrency")

	assert.Equal(t, 2, q.CountTokensIn("How to LEARN Go the hard way"))
	assert.Equal(t, 0, q.CountTokensIn("rust ownership explained"))
	// Each token counts at most once regardless of repetitions.
	assert.Equal(t, 1, q.CountTokensIn("go go go"))
}

func TestQuery_AnyTokenIn(t *testing.T) {
	q := NewQuery("kubernetes networking")

	assert.True(t, q.AnyTokenIn("Intro to Kubernetes"))
	assert.False(t, q.AnyTokenIn("docker compose basics"))
}

func TestContainsAny(t *testing.T) {
	keywords := []string{"tutorial", "guide"}

	assert.True(t, ContainsAny("The Complete GUIDE to testing", keywords))
	assert.False(t, ContainsAny("release notes v2.1", keywords))
	assert.False(t, ContainsAny("anything", nil))
}

func TestCountKeywords(t *testing.T) {
	keywords := []string{"tutorial", "guide", "learn"}

	assert.Equal(t, 2, CountKeywords("a tutorial and a guide", keywords))
	assert.Equal(t, 0, CountKeywords("changelog", keywords))
}

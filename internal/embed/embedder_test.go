package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestEmbedder_UnitMagnitude(t *testing.T) {
	corpus := []string{
		"machine learning systems learn patterns from data",
		"supervised learning uses labeled examples",
		"the weather today is sunny and warm",
	}
	e := NewEmbedder()
	e.Train(corpus)

	for _, text := range corpus {
		vec := e.Embed(text)
		assert.InDelta(t, 1.0, magnitude(vec), 1e-6, "embedding of trained text must be unit length")
	}
}

func TestEmbedder_UnknownTermsYieldZeroVector(t *testing.T) {
	e := NewEmbedder()
	e.Train([]string{"alpha beta gamma"})

	vec := e.Embed("zzz qqq")
	require.Len(t, vec, e.VocabularySize())
	assert.InDelta(t, 0.0, magnitude(vec), 1e-12)
}

func TestEmbedder_UntrainedEmbedIsEmpty(t *testing.T) {
	e := NewEmbedder()
	assert.Empty(t, e.Embed("anything at all"))
	assert.Equal(t, 0, e.VocabularySize())
}

func TestEmbedder_RetrainReplacesVocabulary(t *testing.T) {
	e := NewEmbedder()
	e.Train([]string{"alpha beta gamma delta"})
	first := e.VocabularySize()
	require.Equal(t, 4, first)

	e.Train([]string{"epsilon zeta"})
	assert.Equal(t, 2, e.VocabularySize(), "retrain must replace, not merge")

	// Terms from the first training are now unknown.
	assert.InDelta(t, 0.0, magnitude(e.Embed("alpha beta")), 1e-12)
}

func TestEmbedder_RareTermsWeighMore(t *testing.T) {
	// "common" appears in every document, "rare" in one.
	e := NewEmbedder()
	e.Train([]string{
		"common rare",
		"common alpha",
		"common beta",
	})

	vec := e.Embed("common rare")
	common := vec[indexOf(t, e, "common")]
	rare := vec[indexOf(t, e, "rare")]
	assert.Greater(t, rare, common, "IDF must down-weight ubiquitous terms")
}

func indexOf(t *testing.T, e *Embedder, term string) int {
	t.Helper()
	idx, ok := e.vocab[term]
	require.True(t, ok, "term %q not in vocabulary", term)
	return idx
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hello, World! A x99 foo_bar")
	assert.Equal(t, []string{"hello", "world", "x99", "foo", "bar"}, tokens,
		"lowercase, split on non-alphanumerics, drop tokens shorter than 2")
}

func TestEmbedder_StateRoundTrip(t *testing.T) {
	e := NewEmbedder()
	e.Train([]string{"alpha beta", "beta gamma"})
	want := e.Embed("alpha gamma")

	restored := NewEmbedder()
	restored.RestoreState(e.ExportState())

	assert.Equal(t, e.VocabularySize(), restored.VocabularySize())
	assert.Equal(t, want, restored.Embed("alpha gamma"))
}

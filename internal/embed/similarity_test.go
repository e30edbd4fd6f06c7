package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aikinexis/flint/internal/types"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	v := types.Vector{0.3, 0.0, 0.9, 0.1}
	got, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosine_Symmetric(t *testing.T) {
	a := types.Vector{1, 2, 3}
	b := types.Vector{0, 1, 0.5}
	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine(types.Vector{1, 2}, types.Vector{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	got, err := Cosine(types.Vector{0, 0, 0}, types.Vector{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "zero vector is defined as similarity 0, not an error")
}

func TestJaccard_Identity(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("some tokens here", "some tokens here"))
}

func TestJaccard_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("Hello World", "hello world"))
}

func TestJaccard_Symmetric(t *testing.T) {
	a, b := "apple banana cherry", "banana cherry date"
	assert.Equal(t, Jaccard(a, b), Jaccard(b, a))
}

func TestJaccard_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard("apple banana", "dog elephant"))
}

func TestJaccard_PartialOverlap(t *testing.T) {
	// {apple, banana} vs {banana, cherry}: 1 shared of 3 total.
	assert.InDelta(t, 1.0/3.0, Jaccard("apple banana", "banana cherry"), 1e-9)
}

func TestJaccard_EmptyCases(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("", ""), "both empty is the identity case")
	assert.Equal(t, 0.0, Jaccard("word", ""))
	assert.Equal(t, 0.0, Jaccard("", "word"))
}

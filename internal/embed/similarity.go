package embed

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Aikinexis/flint/internal/types"
)

// ErrDimensionMismatch is returned by Cosine when the two vectors were not
// produced by the same vocabulary.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns the cosine similarity of two equal-length vectors, in
// [-1, 1]. A zero-magnitude vector yields 0 rather than a division error.
func Cosine(a, b types.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// Jaccard returns |intersection| / |union| of the lowercase token sets of
// the two strings: a purely lexical overlap measure, unweighted on purpose
// so shared rare terms count the same as shared common ones. Both empty is
// the identity case (1.0); exactly one empty is 0.0.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = true
	}
	return set
}

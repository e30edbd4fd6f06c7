// Package embed implements the local bag-of-words vector model: a TF-IDF
// embedder trained on a caller-supplied corpus, plus the two similarity
// metrics the rest of the engine ranks with. Fully deterministic, no
// pretrained resources.
package embed

import (
	"math"
	"strings"
	"unicode"

	"github.com/Aikinexis/flint/internal/types"
)

// minTokenLen drops single-character noise tokens ("a", "x", punctuation
// remnants) from the vocabulary.
const minTokenLen = 2

// Embedder turns text into fixed-length weighted vectors over a vocabulary
// built by Train. Not safe for concurrent mutation; callers serialize access.
type Embedder struct {
	vocab    map[string]int // term -> dimension index
	idf      []float64      // per-index inverse document frequency
	docFreq  []int          // per-index document frequency from training
	docCount int
}

// NewEmbedder returns an untrained embedder. Embed before Train yields a
// zero-length vector.
func NewEmbedder() *Embedder {
	return &Embedder{vocab: make(map[string]int)}
}

// Tokenize lowercases text and splits on non-alphanumeric boundaries,
// dropping tokens shorter than two runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Train builds the vocabulary and IDF weights from the given corpus,
// replacing any previous training entirely.
func (e *Embedder) Train(documents []string) {
	e.vocab = make(map[string]int)
	e.docFreq = e.docFreq[:0]
	e.docCount = len(documents)

	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, term := range Tokenize(doc) {
			if seen[term] {
				continue
			}
			seen[term] = true
			idx, ok := e.vocab[term]
			if !ok {
				idx = len(e.vocab)
				e.vocab[term] = idx
				e.docFreq = append(e.docFreq, 0)
			}
			e.docFreq[idx]++
		}
	}

	// Smoothed IDF: always positive, so a term occurring in every document
	// still contributes weight instead of vanishing.
	e.idf = make([]float64, len(e.docFreq))
	for i, df := range e.docFreq {
		e.idf[i] = math.Log(float64(1+e.docCount)/float64(1+df)) + 1
	}
}

// Embed computes the L2-normalized TF-IDF vector for text. Unknown terms
// contribute nothing; text with no known terms yields the zero vector.
func (e *Embedder) Embed(text string) types.Vector {
	vec := make(types.Vector, len(e.vocab))
	if len(e.vocab) == 0 {
		return vec
	}

	tf := make(map[string]int)
	for _, term := range Tokenize(text) {
		tf[term]++
	}
	for term, count := range tf {
		if idx, ok := e.vocab[term]; ok {
			vec[idx] = float64(count) * e.idf[idx]
		}
	}

	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// VocabularySize returns the number of distinct trained terms.
func (e *Embedder) VocabularySize() int {
	return len(e.vocab)
}

// State is a snapshot of a trained vocabulary, serializable by a
// persistence layer.
type State struct {
	Terms    map[string]int `json:"terms"`
	DocFreq  []int          `json:"doc_freq"`
	DocCount int            `json:"doc_count"`
}

// ExportState snapshots the trained vocabulary.
func (e *Embedder) ExportState() State {
	terms := make(map[string]int, len(e.vocab))
	for t, i := range e.vocab {
		terms[t] = i
	}
	df := make([]int, len(e.docFreq))
	copy(df, e.docFreq)
	return State{Terms: terms, DocFreq: df, DocCount: e.docCount}
}

// RestoreState replaces the embedder's training with a previously exported
// snapshot. IDF weights are recomputed from the stored document frequencies.
func (e *Embedder) RestoreState(s State) {
	e.vocab = make(map[string]int, len(s.Terms))
	for t, i := range s.Terms {
		e.vocab[t] = i
	}
	e.docFreq = make([]int, len(s.DocFreq))
	copy(e.docFreq, s.DocFreq)
	e.docCount = s.DocCount

	e.idf = make([]float64, len(e.docFreq))
	for i, df := range e.docFreq {
		e.idf[i] = math.Log(float64(1+e.docCount)/float64(1+df)) + 1
	}
}

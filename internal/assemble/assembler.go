// Package assemble builds a bounded, relevant slice of a document around a
// cursor or selection, for handing to a downstream generation step. Every
// call is self-contained: the vocabulary used for relevance scoring is
// trained per call and discarded, so identical inputs always produce
// byte-identical bundles.
package assemble

import (
	"sort"
	"strings"

	"github.com/Aikinexis/flint/internal/embed"
	"github.com/Aikinexis/flint/internal/types"
)

const (
	// DefaultLocalWindow is the total character budget for the text
	// immediately around the cursor.
	DefaultLocalWindow = 1500
	// DefaultMaxRelatedSections bounds how many ranked sections are returned.
	DefaultMaxRelatedSections = 3
	// DefaultMaxSectionLength is the per-section character budget after
	// compression.
	DefaultMaxSectionLength = 250

	// dedupPrefixLen is the fingerprint length for the cheap duplicate
	// pre-filter: two sections sharing their first 60 characters are treated
	// as duplicates. Sections that differ only after a long common prefix
	// (repeated boilerplate headers) are collapsed too; that approximation is
	// intentional.
	dedupPrefixLen = 60
)

// Options configures Assemble. Use DefaultOptions as the base; zero numeric
// fields fall back to their defaults, boolean fields are taken as-is.
type Options struct {
	// LocalWindow is the total size in characters of the local window, split
	// evenly before and after the cursor.
	LocalWindow int
	// MaxRelatedSections is the maximum number of related sections returned.
	MaxRelatedSections int
	// MaxSectionLength is the compression budget per related section.
	MaxSectionLength int
	// RelevanceScoring enables section scoring; when false only the local
	// window and nearest heading are produced.
	RelevanceScoring bool
	// Deduplication enables the prefix-fingerprint duplicate filter.
	Deduplication bool
}

// DefaultOptions returns the documented defaults with scoring and
// deduplication enabled.
func DefaultOptions() Options {
	return Options{
		LocalWindow:        DefaultLocalWindow,
		MaxRelatedSections: DefaultMaxRelatedSections,
		MaxSectionLength:   DefaultMaxSectionLength,
		RelevanceScoring:   true,
		Deduplication:      true,
	}
}

func (o Options) normalized() Options {
	if o.LocalWindow <= 0 {
		o.LocalWindow = DefaultLocalWindow
	}
	if o.MaxRelatedSections <= 0 {
		o.MaxRelatedSections = DefaultMaxRelatedSections
	}
	if o.MaxSectionLength <= 0 {
		o.MaxSectionLength = DefaultMaxSectionLength
	}
	return o
}

// Assemble builds a context bundle around a cursor position.
func Assemble(document string, cursor int, opts Options) types.ContextBundle {
	return AssembleRange(document, cursor, cursor, opts)
}

// AssembleRange builds a context bundle around a selection. The local window
// is measured from the selection's start and end and never crosses into the
// selection itself.
func AssembleRange(document string, selStart, selEnd int, opts Options) types.ContextBundle {
	opts = opts.normalized()

	selStart = clamp(selStart, 0, len(document))
	selEnd = clamp(selEnd, selStart, len(document))

	half := opts.LocalWindow / 2
	beforeStart := clamp(selStart-half, 0, len(document))
	afterEnd := clamp(selEnd+half, 0, len(document))

	bundle := types.ContextBundle{
		LocalBefore:    document[beforeStart:selStart],
		LocalAfter:     document[selEnd:afterEnd],
		NearestHeading: NearestHeading(document, selStart),
		Related:        []types.RelatedSection{},
	}

	if !opts.RelevanceScoring {
		return bundle
	}

	sections := Segment(document)
	bundle.SectionCount = len(sections)

	// Candidate sections live outside the local window span; anything
	// overlapping it is already in the caller's view.
	candidates := sections[:0:0]
	for _, s := range sections {
		if s.EndOffset <= beforeStart || s.StartOffset >= afterEnd {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return bundle
	}

	local := bundle.LocalBefore + "\n" + bundle.LocalAfter

	// Call-scoped vocabulary: local window plus all candidates, rebuilt and
	// discarded every call.
	embedder := embed.NewEmbedder()
	corpus := make([]string, 0, len(candidates)+1)
	corpus = append(corpus, local)
	for _, s := range candidates {
		corpus = append(corpus, s.Text)
	}
	embedder.Train(corpus)
	query := embedder.Embed(local)

	type scoredSection struct {
		section types.Section
		score   float64
	}
	scored := make([]scoredSection, 0, len(candidates))
	for _, s := range candidates {
		score, err := embed.Cosine(query, embedder.Embed(s.Text))
		if err != nil || score <= 0 {
			// Zero overlap is never force-included.
			continue
		}
		scored = append(scored, scoredSection{section: s, score: score})
	}

	// Candidates are in document order, so the stable sort breaks score ties
	// in favor of the earlier section.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > opts.MaxRelatedSections {
		scored = scored[:opts.MaxRelatedSections]
	}

	seen := make(map[string]bool, len(scored))
	for _, sc := range scored {
		if opts.Deduplication {
			fp := prefix(sc.section.Text, dedupPrefixLen)
			if seen[fp] {
				continue
			}
			seen[fp] = true
		}
		bundle.Related = append(bundle.Related, types.RelatedSection{
			Text:  compressSection(sc.section.Text, opts.MaxSectionLength),
			Score: sc.score,
		})
	}

	return bundle
}

// compressSection truncates text to at most max characters, preferring to
// end at a sentence boundary, falling back to a word boundary.
func compressSection(text string, max int) string {
	if len(text) <= max {
		return text
	}

	cut := text[:max]
	if end := lastSentenceEnd(cut); end > 0 {
		return strings.TrimSpace(cut[:end])
	}
	if sp := strings.LastIndexAny(cut, " \t\n"); sp > 0 {
		return strings.TrimSpace(cut[:sp])
	}
	return strings.TrimSpace(cut)
}

// lastSentenceEnd returns the position just past the last sentence
// terminator that ends a sentence (followed by whitespace or end of text).
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			if i == len(s)-1 || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return i + 1
			}
		}
	}
	return 0
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package types

import "time"

// Vector is a dense TF-IDF weight vector. Its length equals the vocabulary
// size of the embedder that produced it.
type Vector []float64

// Metadata stores associated key-value pairs for a memory item.
type Metadata map[string]any

// MemoryItem is a remembered snippet owned by the memory manager.
// Identity is the caller-assigned ID; Text is immutable after insertion.
type MemoryItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Vector    Vector    `json:"-"` // recomputed on train; excluded from JSON to avoid store bloat
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredResult is a read-only projection produced by search operations.
type ScoredResult struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Section is a contiguous slice of a source document, derived per assembly
// call from paragraph and heading boundaries. Never persisted.
type Section struct {
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Heading     string `json:"heading,omitempty"` // nearest preceding heading, "" if none
}

// RelatedSection is one ranked entry in a ContextBundle.
type RelatedSection struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ContextBundle is the assembly engine's output, ready for prompt formatting.
// Rebuilt on every call.
type ContextBundle struct {
	LocalBefore    string           `json:"local_before"`
	LocalAfter     string           `json:"local_after"`
	Related        []RelatedSection `json:"related_sections"`
	NearestHeading string           `json:"nearest_heading,omitempty"`
	SectionCount   int              `json:"section_count"`
}

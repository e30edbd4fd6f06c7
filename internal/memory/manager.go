// Package memory implements the ranked semantic memory store: a growable
// collection of (id, text, vector) items sharing one trained vocabulary,
// with cosine-ranked search and Jaccard near-duplicate filtering.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Aikinexis/flint/internal/embed"
	"github.com/Aikinexis/flint/internal/types"
)

// ErrNotFound is returned by FindSimilar when the referenced id is absent.
var ErrNotFound = errors.New("memory not found")

// DefaultTopK bounds result counts when the caller leaves TopK unset.
const DefaultTopK = 5

// defaultMaxJaccard is the near-duplicate threshold used when the filter is
// enabled without an explicit threshold.
const defaultMaxJaccard = 0.8

// SearchOptions configures Search and FindSimilar.
type SearchOptions struct {
	// TopK truncates the ranked result list. 0 means DefaultTopK.
	TopK int
	// MinScore drops results whose cosine score is below this value.
	MinScore float64
	// JaccardFilter enables greedy near-duplicate removal over the ranked list.
	JaccardFilter bool
	// MaxJaccard is the lexical-overlap threshold above which a candidate is
	// considered a near-duplicate of an accepted result. 0 with JaccardFilter
	// enabled means defaultMaxJaccard.
	MaxJaccard float64
}

// Stats summarizes the manager's current state.
type Stats struct {
	TotalMemories  int `json:"total_memories"`
	VocabularySize int `json:"vocabulary_size"`
}

// Manager owns its item collection and the shared embedder. Callers must
// serialize access; there is one logical owner per session.
type Manager struct {
	embedder *embed.Embedder
	items    map[string]*types.MemoryItem
	order    []string // insertion order; ranking tie-break and export order
}

// NewManager returns an empty memory manager with an untrained embedder.
func NewManager() *Manager {
	return &Manager{
		embedder: embed.NewEmbedder(),
		items:    make(map[string]*types.MemoryItem),
	}
}

// Add inserts or replaces the item keyed by id. The new vector is not
// computed until the next Train call.
func (m *Manager) Add(id, text string, metadata types.Metadata) {
	if _, exists := m.items[id]; !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = &types.MemoryItem{
		ID:        id,
		Text:      text,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Remove deletes the item if present and reports whether it existed.
func (m *Manager) Remove(id string) bool {
	if _, exists := m.items[id]; !exists {
		return false
	}
	delete(m.items, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Train rebuilds the vocabulary over all current item texts and recomputes
// every stored vector. Must run before Search or FindSimilar return
// meaningful non-zero scores.
func (m *Manager) Train() {
	corpus := make([]string, 0, len(m.order))
	for _, id := range m.order {
		corpus = append(corpus, m.items[id].Text)
	}
	m.embedder.Train(corpus)
	for _, id := range m.order {
		m.items[id].Vector = m.embedder.Embed(m.items[id].Text)
	}
}

// Search embeds the query with the current vocabulary and ranks all stored
// items by cosine similarity, descending, ties broken by insertion order.
func (m *Manager) Search(query string, opts SearchOptions) []types.ScoredResult {
	return m.rank(m.embedder.Embed(query), "", opts)
}

// FindSimilar ranks stored items against the stored vector of the item with
// the given id, excluding the item itself.
func (m *Manager) FindSimilar(id string, opts SearchOptions) ([]types.ScoredResult, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return m.rank(item.Vector, id, opts), nil
}

func (m *Manager) rank(query types.Vector, excludeID string, opts SearchOptions) []types.ScoredResult {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	// Walk in insertion order so the stable sort below breaks score ties by
	// insertion order.
	results := make([]types.ScoredResult, 0, len(m.order))
	for _, id := range m.order {
		if id == excludeID {
			continue
		}
		item := m.items[id]
		score, err := embed.Cosine(query, item.Vector)
		if err != nil {
			// Stale vector from before the latest training; counts as no overlap.
			score = 0
		}
		if score < opts.MinScore {
			continue
		}
		results = append(results, types.ScoredResult{
			ID:       item.ID,
			Text:     item.Text,
			Score:    score,
			Metadata: item.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.JaccardFilter {
		results = dedupeByJaccard(results, opts.MaxJaccard)
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// dedupeByJaccard greedily walks the ranked list and keeps a candidate only
// if its lexical overlap with every already-kept result is at or below the
// threshold. Higher-ranked items always win over later near-duplicates.
func dedupeByJaccard(ranked []types.ScoredResult, maxJaccard float64) []types.ScoredResult {
	if maxJaccard <= 0 {
		maxJaccard = defaultMaxJaccard
	}
	kept := make([]types.ScoredResult, 0, len(ranked))
	for _, cand := range ranked {
		duplicate := false
		for _, k := range kept {
			if embed.Jaccard(cand.Text, k.Text) > maxJaccard {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, cand)
		}
	}
	return kept
}

// Export returns a snapshot of all items in insertion order, vectors
// included, for a caller-owned persistence layer.
func (m *Manager) Export() []types.MemoryItem {
	out := make([]types.MemoryItem, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.items[id])
	}
	return out
}

// Import replaces the manager's items with the given snapshot, preserving
// slice order as insertion order. Vectors are taken as-is; callers that did
// not persist vectors (or vocabulary state) should Train afterwards.
func (m *Manager) Import(items []types.MemoryItem) {
	m.items = make(map[string]*types.MemoryItem, len(items))
	m.order = m.order[:0]
	for _, it := range items {
		item := it
		if _, exists := m.items[item.ID]; !exists {
			m.order = append(m.order, item.ID)
		}
		m.items[item.ID] = &item
	}
}

// VocabState exports the embedder's trained vocabulary for persistence.
func (m *Manager) VocabState() embed.State {
	return m.embedder.ExportState()
}

// RestoreVocab restores a previously exported vocabulary, making imported
// vectors searchable without retraining.
func (m *Manager) RestoreVocab(s embed.State) {
	m.embedder.RestoreState(s)
}

// GetStats reports item and vocabulary counts.
func (m *Manager) GetStats() Stats {
	return Stats{
		TotalMemories:  len(m.items),
		VocabularySize: m.embedder.VocabularySize(),
	}
}

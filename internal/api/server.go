// Package api exposes the assembly engine and memory manager over HTTP.
// The server is plumbing only: all scoring and budgeting happens in the
// core packages, and the generation provider is never called from here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aikinexis/flint/internal/assemble"
	"github.com/Aikinexis/flint/internal/config"
	"github.com/Aikinexis/flint/internal/memory"
	"github.com/Aikinexis/flint/internal/storage"
	"github.com/Aikinexis/flint/internal/types"
)

// Server routes HTTP requests to the memory manager and assembly engine.
// The manager is single-owner; the mutex serializes access across requests.
type Server struct {
	mu     sync.Mutex
	memory *memory.Manager
	store  *storage.SnapshotStore // nil disables the snapshot endpoints
	cfg    config.Config
	log    *zap.Logger
}

// NewServer wires the server's collaborators together.
func NewServer(mm *memory.Manager, store *storage.SnapshotStore, cfg config.Config, log *zap.Logger) *Server {
	return &Server{
		memory: mm,
		store:  store,
		cfg:    cfg,
		log:    log,
	}
}

// AssembleOptions is the wire form of assemble.Options; nil pointers mean
// "use the default".
type AssembleOptions struct {
	LocalWindow        int   `json:"local_window,omitempty"`
	MaxRelatedSections int   `json:"max_related_sections,omitempty"`
	MaxSectionLength   int   `json:"max_section_length,omitempty"`
	RelevanceScoring   *bool `json:"relevance_scoring,omitempty"`
	Deduplication      *bool `json:"deduplication,omitempty"`
}

// AssembleRequest is the /assemble payload. SelectionEnd, when set, turns
// the cursor offset into a selection range.
type AssembleRequest struct {
	Document     string           `json:"document"`
	CursorOffset int              `json:"cursor_offset"`
	SelectionEnd *int             `json:"selection_end,omitempty"`
	Options      *AssembleOptions `json:"options,omitempty"`
}

// AssembleResponse carries the bundle plus its formatted prompt string.
type AssembleResponse struct {
	Bundle types.ContextBundle `json:"bundle"`
	Prompt string              `json:"prompt"`
}

// AddMemoryRequest is the POST /memory payload. An empty ID gets a
// generated UUID.
type AddMemoryRequest struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "flint",
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"/health", "/stats", "/assemble",
			"/memory", "/memory/train", "/memory/search",
			"/memory/export", "/memory/import",
			"/snapshot/save", "/snapshot/load",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.memory.GetStats()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.assembleOptions(req.Options)
	selEnd := req.CursorOffset
	if req.SelectionEnd != nil {
		selEnd = *req.SelectionEnd
	}

	bundle := assemble.AssembleRange(req.Document, req.CursorOffset, selEnd, opts)

	s.log.Debug("assembled context",
		zap.Int("document_len", len(req.Document)),
		zap.Int("cursor", req.CursorOffset),
		zap.Int("related", len(bundle.Related)),
		zap.String("heading", bundle.NearestHeading))

	writeJSON(w, http.StatusOK, AssembleResponse{
		Bundle: bundle,
		Prompt: assemble.FormatPrompt(bundle),
	})
}

// assembleOptions overlays request options on the configured defaults.
func (s *Server) assembleOptions(req *AssembleOptions) assemble.Options {
	opts := assemble.DefaultOptions()
	if s.cfg.Assemble.LocalWindow > 0 {
		opts.LocalWindow = s.cfg.Assemble.LocalWindow
	}
	if s.cfg.Assemble.MaxRelatedSections > 0 {
		opts.MaxRelatedSections = s.cfg.Assemble.MaxRelatedSections
	}
	if s.cfg.Assemble.MaxSectionLength > 0 {
		opts.MaxSectionLength = s.cfg.Assemble.MaxSectionLength
	}
	if req == nil {
		return opts
	}
	if req.LocalWindow > 0 {
		opts.LocalWindow = req.LocalWindow
	}
	if req.MaxRelatedSections > 0 {
		opts.MaxRelatedSections = req.MaxRelatedSections
	}
	if req.MaxSectionLength > 0 {
		opts.MaxSectionLength = req.MaxSectionLength
	}
	if req.RelevanceScoring != nil {
		opts.RelevanceScoring = *req.RelevanceScoring
	}
	if req.Deduplication != nil {
		opts.Deduplication = *req.Deduplication
	}
	return opts
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req AddMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.memory.Add(req.ID, req.Text, req.Metadata)
	stats := s.memory.GetStats()
	s.mu.Unlock()

	s.log.Info("memory added", zap.String("id", req.ID), zap.Int("text_len", len(req.Text)))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "added",
		"id":             req.ID,
		"total_memories": stats.TotalMemories,
	})
}

func (s *Server) handleRemoveMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	removed := s.memory.Remove(id)
	s.mu.Unlock()

	if !removed {
		http.Error(w, "memory not found", http.StatusNotFound)
		return
	}
	s.log.Info("memory removed", zap.String("id", id))
	writeJSON(w, http.StatusOK, map[string]any{"status": "removed", "id": id})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.memory.Train()
	stats := s.memory.GetStats()
	s.mu.Unlock()

	s.log.Info("memory trained",
		zap.Int("total_memories", stats.TotalMemories),
		zap.Int("vocabulary_size", stats.VocabularySize))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	opts := s.searchOptions(r)

	s.mu.Lock()
	results := s.memory.Search(query, opts)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opts := s.searchOptions(r)

	s.mu.Lock()
	results, err := s.memory.FindSimilar(id, opts)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) searchOptions(r *http.Request) memory.SearchOptions {
	opts := memory.SearchOptions{
		TopK:       s.cfg.Search.TopK,
		MinScore:   s.cfg.Search.MinScore,
		MaxJaccard: s.cfg.Search.MaxJaccard,
	}
	q := r.URL.Query()
	if v := q.Get("k"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			opts.TopK = k
		}
	}
	if v := q.Get("min_score"); v != "" {
		if min, err := strconv.ParseFloat(v, 64); err == nil {
			opts.MinScore = min
		}
	}
	if v := q.Get("dedupe"); v == "1" || v == "true" {
		opts.JaccardFilter = true
	}
	if v := q.Get("max_jaccard"); v != "" {
		if mj, err := strconv.ParseFloat(v, 64); err == nil && mj > 0 {
			opts.MaxJaccard = mj
		}
	}
	return opts
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.memory.Export()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []types.MemoryItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.memory.Import(req.Items)
	s.memory.Train()
	stats := s.memory.GetStats()
	s.mu.Unlock()

	s.log.Info("memory imported", zap.Int("items", len(req.Items)))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "snapshot store not configured", http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	items := s.memory.Export()
	vocab := s.memory.VocabState()
	s.mu.Unlock()

	if err := s.store.Save(items, vocab); err != nil {
		s.log.Error("snapshot save failed", zap.Error(err))
		http.Error(w, "failed to save snapshot", http.StatusInternalServerError)
		return
	}
	s.log.Info("snapshot saved", zap.Int("items", len(items)), zap.Int("vocabulary_size", len(vocab.Terms)))
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "items": len(items)})
}

func (s *Server) handleSnapshotLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "snapshot store not configured", http.StatusServiceUnavailable)
		return
	}

	items, vocab, err := s.store.Load()
	if err != nil {
		s.log.Error("snapshot load failed", zap.Error(err))
		http.Error(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.memory.Import(items)
	s.memory.RestoreVocab(vocab)
	stats := s.memory.GetStats()
	s.mu.Unlock()

	s.log.Info("snapshot loaded", zap.Int("items", len(items)))
	writeJSON(w, http.StatusOK, stats)
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/assemble", s.handleAssemble)

	r.Route("/memory", func(r chi.Router) {
		r.Post("/", s.handleAddMemory)
		r.Post("/train", s.handleTrain)
		r.Get("/search", s.handleSearch)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Delete("/{id}", s.handleRemoveMemory)
		r.Get("/{id}/similar", s.handleFindSimilar)
	})

	r.Post("/snapshot/save", s.handleSnapshotSave)
	r.Post("/snapshot/load", s.handleSnapshotLoad)

	return r
}

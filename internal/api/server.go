package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/postworthy/postbot/internal/biz/usecase"
)

// Server exposes a small HTTP surface for health checks and buffer
// inspection
type Server struct {
	buffer *usecase.BufferUsecase
	store  *usecase.SuggestionStore

	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(buffer *usecase.BufferUsecase, store *usecase.SuggestionStore, port int) *Server {
	return &Server{
		buffer: buffer,
		store:  store,
		port:   port,
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/buffer/summary", s.handleBufferSummary)
	mux.HandleFunc("/api/suggestions/summary", s.handleSuggestionSummary)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts down the HTTP server
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *Server) handleBufferSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.buffer.Stats())
}

func (s *Server) handleSuggestionSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := s.store.ListAll()
	type entry struct {
		Fingerprint string    `json:"fingerprint"`
		StoredAt    time.Time `json:"stored_at"`
	}
	out := struct {
		Count   int     `json:"count"`
		Entries []entry `json:"entries"`
	}{Count: len(records)}
	for _, rec := range records {
		out.Entries = append(out.Entries, entry{Fingerprint: rec.Fingerprint, StoredAt: rec.StoredAt})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("[API] Failed to encode response: %v\n", err)
	}
}

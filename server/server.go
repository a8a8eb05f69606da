// Package server exposes the ingestion pipeline over HTTP. Ingestions
// stream their event log as server-sent events; replanning and vector
// search are plain JSON endpoints.
//
// Concurrent ingestions against the same session are not serialized:
// the snapshot slot is last-write-wins, matching the pipeline's
// documented race. Hosts wanting stronger guarantees should run one
// ingestion per session at a time.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gaurav-prasanna/tablepipe/pipeline"
	"github.com/google/uuid"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

// New creates a Server around a pipeline.
func New(pipe *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{pipe: pipe, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /replan", s.handleReplan)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// handleIngest runs one ingestion and streams its events as SSE.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" && req.Text == "" {
		http.Error(w, "either url or text is required", http.StatusBadRequest)
		return
	}

	req.Session = r.URL.Query().Get("session")
	if req.Session == "" {
		req.Session = uuid.NewString()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Session-ID", req.Session)
	w.WriteHeader(http.StatusOK)

	s.logger.Info("ingestion started", "session", req.Session, "url", req.URL)
	for ev := range s.pipe.Run(r.Context(), req) {
		writeSSE(w, flusher, ev)
	}
}

// writeSSE frames one event as "event: name" + "data: json" lines.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev pipeline.Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		data = []byte(`"unserializable payload"`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	flusher.Flush()
}

// handleReplan re-plans charts from the retained schema snapshot.
func (s *Server) handleReplan(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	charts, snap, err := s.pipe.Replan(r.Context(), session)
	if errors.Is(err, pipeline.ErrNoSnapshot) {
		http.Error(w, "no snapshot for session", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("replan failed", "session", session, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"charts": charts, "schema": snap})
}

// handleSearch embeds the query and runs a similarity lookup.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	matches, err := s.pipe.Search(r.Context(), query, topK)
	if errors.Is(err, pipeline.ErrNoVectorBackend) {
		http.Error(w, "no vector backend configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("search failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"matches": matches})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the answer and research pipelines over HTTP. Answer
// streams are delivered as newline-delimited JSON events; completed runs
// are persisted to the history store.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/stream"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// AnswerService produces the quick-mode pipeline for one question.
type AnswerService interface {
	Answer(hist []types.Message, query string) stream.Pipeline
}

// ResearchService produces the deep-research pipeline for one question.
type ResearchService interface {
	Run(query string) stream.Pipeline
}

// HistoryStore persists completed runs.
type HistoryStore interface {
	Save(ctx context.Context, run history.Run) error
	Get(ctx context.Context, id string) (history.Run, error)
	List(ctx context.Context, limit int) ([]history.Run, error)
	Search(ctx context.Context, query string, limit int) ([]history.Run, error)
	Delete(ctx context.Context, id string) error
}

// Server routes pipeline and history requests.
type Server struct {
	answers  AnswerService
	research ResearchService
	store    HistoryStore
	log      *zap.Logger
}

// NewServer builds the HTTP server. research and store may be nil; their
// routes then return 503 and 404 respectively.
func NewServer(answers AnswerService, research ResearchService, store HistoryStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{answers: answers, research: research, store: store, log: log}
}

// Router assembles the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/api/answer", s.answer)
	r.Post("/api/research", s.runResearch)
	r.Get("/api/history", s.listHistory)
	r.Get("/api/history/{id}", s.getHistory)
	r.Delete("/api/history/{id}", s.deleteHistory)
	r.Get("/health", s.health)

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.log.Info("listening", zap.String("addr", addr))
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type answerRequest struct {
	Query   string          `json:"query"`
	History []types.Message `json:"history,omitempty"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query required", http.StatusBadRequest)
		return
	}
	s.streamRun(w, r, history.KindQuick, req.Query, s.answers.Answer(req.History, req.Query))
}

type researchRequest struct {
	Query string `json:"query"`
}

func (s *Server) runResearch(w http.ResponseWriter, r *http.Request) {
	if s.research == nil {
		http.Error(w, "research is not configured", http.StatusServiceUnavailable)
		return
	}
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query required", http.StatusBadRequest)
		return
	}
	s.streamRun(w, r, history.KindResearch, req.Query, s.research.Run(req.Query))
}

// streamRun relays pipeline events as NDJSON and persists the completed
// run. The stream always terminates with a single done or error event.
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, kind history.Kind, query string, pipeline stream.Pipeline) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	enc := json.NewEncoder(w)
	runID := uuid.NewString()

	var answer strings.Builder
	var sources []types.Document
	completed := false

	for ev := range stream.Run(r.Context(), pipeline) {
		switch ev.Type {
		case stream.EventSources:
			sources = ev.Sources
		case stream.EventResponse:
			answer.WriteString(ev.Chunk)
		case stream.EventDone:
			completed = true
		}
		if err := enc.Encode(ev); err != nil {
			return
		}
		flusher.Flush()
	}

	if completed && s.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		err := s.store.Save(saveCtx, history.Run{
			ID:      runID,
			Kind:    kind,
			Query:   query,
			Answer:  answer.String(),
			Sources: sources,
		})
		if err != nil {
			s.log.Warn("saving run to history failed", zap.String("run", runID), zap.Error(err))
		}
	}
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var runs []history.Run
	var err error
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		runs, err = s.store.Search(r.Context(), q, limit)
	} else {
		runs, err = s.store.List(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

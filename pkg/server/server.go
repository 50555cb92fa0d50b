// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes collaboration sessions over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jllopis/colloquy/pkg/archive"
	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/collab"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/scenario"
)

const maxBodyBytes = 64 << 10

// Server serves the HTTP API.
type Server struct {
	orch      *collab.Orchestrator
	archive   archive.Store
	health    core.HealthCheckProvider
	scenarios []scenario.Scenario
	log       *slog.Logger
	version   string
	mux       *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithArchive stores every finished session and enables /sessions.
func WithArchive(store archive.Store) Option {
	return func(s *Server) { s.archive = store }
}

// WithHealth sets the provider behind /health.
func WithHealth(p core.HealthCheckProvider) Option {
	return func(s *Server) {
		if p != nil {
			s.health = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithVersion sets the version reported by / and /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server for orch.
func New(orch *collab.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:      orch,
		health:    core.NewDefaultHealthCheckProvider(0),
		scenarios: scenario.Builtin(),
		log:       slog.Default(),
		version:   "dev",
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /agents", s.handleAgents)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /scenarios", s.handleScenarios)
	s.mux.HandleFunc("GET /collaboration-scenarios", s.handleScenarios)
	s.mux.HandleFunc("GET /collaboration-stats", s.handleStats)
	s.mux.HandleFunc("GET /sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	return s
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.listening", slog.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server.stopped", slog.String("addr", addr))
	return nil
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID string              `json:"conversation_id"`
	Response       string              `json:"response"`
	AgentResponses map[string]string   `json:"agent_responses"`
	Citations      []citation.Citation `json:"citations"`
	Session        *core.Session       `json:"session"`
	Error          json.RawMessage     `json:"error,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "colloquy",
		"version": s.version,
		"endpoints": []string{
			"POST /chat", "GET /agents", "GET /health", "GET /scenarios", "GET /collaboration-stats",
			"GET /sessions", "GET /sessions/{id}",
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.New(errors.CodeInvalidInput, "malformed request body", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, errors.NewInvalidInputError("message cannot be empty"))
		return
	}

	sess, err := s.orch.Run(r.Context(), req.Message)
	if sess == nil {
		writeError(w, err)
		return
	}
	s.store(r.Context(), sess)

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = sess.ID
	}
	resp := chatResponse{
		ConversationID: conversationID,
		Response:       sess.ModeratorSummary,
		AgentResponses: make(map[string]string, len(sess.Turns)),
		Citations:      []citation.Citation{},
		Session:        sess,
	}
	for _, t := range sess.Turns {
		resp.AgentResponses[t.ParticipantID] = t.Content
		resp.Citations = append(resp.Citations, t.Citations...)
	}
	status := http.StatusOK
	if err != nil {
		ce := errors.AsColloquyError(err)
		resp.Error, _ = json.Marshal(ce)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// store archives a session. Archive failures never fail the request.
func (s *Server) store(ctx context.Context, sess *core.Session) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Save(context.WithoutCancel(ctx), sess); err != nil {
		s.log.WarnContext(ctx, "server.archive.failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

type collaborationStyle struct {
	Style    string `json:"style,omitempty"`
	Approach string `json:"approach,omitempty"`
}

type agentInfo struct {
	ID                 string             `json:"persona"`
	Name               string             `json:"name"`
	Kind               string             `json:"kind"`
	Description        string             `json:"description"`
	CollaborationStyle collaborationStyle `json:"collaboration_style"`
	Strengths          []string           `json:"strengths"`
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	ps := s.orch.Registry().Participants()
	out := make([]agentInfo, 0, len(ps))
	for _, p := range ps {
		strengths := p.Strengths
		if strengths == nil {
			strengths = []string{}
		}
		out = append(out, agentInfo{
			ID:                 p.ID,
			Name:               p.DisplayName,
			Kind:               string(p.Kind),
			Description:        p.Description,
			CollaborationStyle: collaborationStyle{Style: p.Style, Approach: p.Approach},
			Strengths:          strengths,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results, overall := s.health.CheckAll(r.Context())
	var agents []string
	for _, p := range s.orch.Registry().Participants() {
		agents = append(agents, p.ID)
	}
	status := http.StatusOK
	if overall == core.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"components": results,
		"agents":     agents,
		"version":    s.version,
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scenarios)
}

type collaborationStats struct {
	TotalConversations    int                `json:"total_conversations"`
	ByState               map[core.State]int `json:"by_state"`
	TotalTurns            int                `json:"total_turns"`
	DegradedTurns         int                `json:"degraded_turns"`
	CollaborationPatterns map[string]string  `json:"collaboration_patterns"`
}

// handleStats aggregates the archived sessions. Without an archive only the
// participant patterns are reported.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := collaborationStats{
		ByState:               map[core.State]int{},
		CollaborationPatterns: map[string]string{},
	}
	for _, p := range s.orch.Registry().Participants() {
		stats.CollaborationPatterns[p.ID] = p.Approach
	}
	if s.archive != nil {
		list, err := s.archive.List(r.Context(), archive.Filter{})
		if err != nil {
			writeError(w, err)
			return
		}
		for _, sum := range list {
			stats.TotalConversations++
			stats.ByState[sum.State]++
			stats.TotalTurns += sum.Turns
			stats.DegradedTurns += sum.Degraded
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, errors.NewNotFoundError("archive", "sessions"))
		return
	}
	filter := archive.Filter{State: core.State(strings.ToUpper(r.URL.Query().Get("state")))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errors.NewInvalidInputError("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	list, err := s.archive.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, errors.NewNotFoundError("archive", "sessions"))
		return
	}
	sess, err := s.archive.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	ce := errors.AsColloquyError(err)
	status := ce.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{"error": ce})
}

// Package api exposes the conversation engine over HTTP: one endpoint
// to process a scammer message, one to read a session's report.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/netrasec/jaal/internal/callback"
	"github.com/netrasec/jaal/internal/engine"
	"github.com/netrasec/jaal/internal/store"
)

type Server struct {
	router *chi.Mux
	engine *engine.Engine
	store  store.Store
	apiKey string
	port   int
	logger *slog.Logger
}

func NewServer(e *engine.Engine, st store.Store, apiKey string, port int, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		engine: e,
		store:  st,
		apiKey: apiKey,
		port:   port,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/api/v1/message", s.handleMessage)
		r.Get("/api/v1/sessions/{id}/report", s.handleReport)
	})

	return s
}

// Handler exposes the router for tests and for embedding in an
// http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// auth checks X-API-Key when a key is configured. An empty configured
// key leaves the API open, which is the dev-mode default.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   struct {
		Text   string `json:"text"`
		Sender string `json:"sender"`
	} `json:"message"`
	Metadata struct {
		Channel string `json:"channel"`
	} `json:"metadata"`
}

type messageResponse struct {
	Status       string              `json:"status"`
	Reply        string              `json:"reply"`
	ScamDetected bool                `json:"scamDetected"`
	ThreatLevel  int                 `json:"threatLevel"`
	ScamCategory string              `json:"scamCategory"`
	Persona      string              `json:"scammerPersona"`
	FatigueScore int                 `json:"fatigueScore"`
	TurnCount    int                 `json:"turnCount"`
	Intelligence map[string][]string `json:"intelligence"`
	ReportSent   bool                `json:"reportSent"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	channel := req.Metadata.Channel
	if channel == "" {
		channel = "sms"
	}

	res, err := s.engine.HandleTurn(r.Context(), req.SessionID, req.Message.Text, req.Message.Sender, channel)
	if err != nil {
		s.logger.Error("handle turn", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	delta := make(map[string][]string, len(res.IntelDelta))
	for typ, values := range res.IntelDelta {
		delta[string(typ)] = values
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Status:       "ok",
		Reply:        res.Reply,
		ScamDetected: res.Engaged,
		ThreatLevel:  res.ThreatLevel,
		ScamCategory: string(res.Category),
		Persona:      string(res.ScammerPersona),
		FatigueScore: res.FatigueScore,
		TurnCount:    res.TurnCount,
		Intelligence: delta,
		ReportSent:   res.ReportSent,
	})
}

type transcriptMessage struct {
	Sender         string  `json:"sender"`
	Text           string  `json:"text"`
	Timestamp      string  `json:"timestamp"`
	LatencySeconds float64 `json:"latencySeconds"`
}

type sessionReportResponse struct {
	callback.Report
	FatigueScore int                 `json:"fatigueScore"`
	Transcript   []transcriptMessage `json:"transcript"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	items, err := s.store.Items(ctx, id)
	if err != nil {
		s.logger.Error("load intelligence", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	msgs, err := s.store.Messages(ctx, id)
	if err != nil {
		s.logger.Error("load messages", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	transcript := make([]transcriptMessage, 0, len(msgs))
	for _, m := range msgs {
		transcript = append(transcript, transcriptMessage{
			Sender:         m.Sender,
			Text:           m.Text,
			Timestamp:      m.Timestamp.Format(time.RFC3339),
			LatencySeconds: m.LatencySeconds,
		})
	}

	writeJSON(w, http.StatusOK, sessionReportResponse{
		Report:       callback.BuildReport(sess, items, msgs),
		FatigueScore: sess.FatigueScore,
		Transcript:   transcript,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}

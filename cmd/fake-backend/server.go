// ABOUTME: HTTP handlers for the fake widget backend
// ABOUTME: Serves the webhook (SSE or single-shot), widget config, rating, and contact endpoints

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server scripts widget backend behavior for local development.
type Server struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.Mutex
	counts   map[string]int // successful exchanges per session
	rotation map[string]int // reply rotation per session
}

func NewServer(cfg *Config, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With("component", "fake-backend"),
		counts:   make(map[string]int),
		rotation: make(map[string]int),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/v1/webhook", s.handleWebhook)
	r.Get("/api/v1/widget/config/{key}", s.handleWidgetConfig)
	r.Post("/api/v1/widget/rating", s.handleRating)
	r.Post("/api/v1/widget/contact", s.handleContact)

	return r
}

// webhookRequest is the message payload the widget engine posts.
type webhookRequest struct {
	WidgetKey string `json:"widgetKey"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Language  string `json:"language"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.WidgetKey != s.cfg.Widget.Key {
		s.sendJSONError(w, http.StatusNotFound, "unknown widget key")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if s.quotaExhausted(sessionID) {
		s.logger.Info("quota exhausted", "session_id", sessionID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":      "Conversation limit reached for this plan.",
			"limitReached": true,
			"data":         map[string]string{"planType": s.cfg.Widget.PlanType},
		})
		return
	}

	reply, inject := s.nextReply(sessionID)
	s.logger.Info("webhook message",
		"session_id", sessionID,
		"language", req.Language,
		"streaming", s.wantsStream(r),
		"inject_error", inject,
	)

	if s.wantsStream(r) {
		s.streamReply(w, r, sessionID, reply, inject)
		return
	}

	if inject {
		s.sendJSONError(w, http.StatusInternalServerError, "Scripted backend failure.")
		return
	}

	s.recordExchange(sessionID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response":  reply,
		"sessionId": sessionID,
	})
}

// wantsStream reports whether the client asked for a token stream and
// the scenario allows one.
func (s *Server) wantsStream(r *http.Request) bool {
	return s.cfg.Behavior.Streaming && r.URL.Query().Get("stream") == "1"
}

// streamReply writes the reply as an SSE token stream, one word per
// event. An injected failure streams the first token, then an error
// event instead of done.
func (s *Server) streamReply(w http.ResponseWriter, r *http.Request, sessionID, reply string, inject bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for i, token := range tokenize(reply) {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		s.writeSSEEvent(w, map[string]string{"type": "token", "token": token})
		flusher.Flush()

		if inject && i == 0 {
			s.writeSSEEvent(w, map[string]string{"type": "error"})
			flusher.Flush()
			return
		}

		if s.cfg.Behavior.TokenDelay > 0 {
			time.Sleep(s.cfg.Behavior.TokenDelay)
		}
	}

	s.recordExchange(sessionID)
	s.writeSSEEvent(w, map[string]string{"type": "done", "sessionId": sessionID})
	flusher.Flush()
}

func (s *Server) writeSSEEvent(w http.ResponseWriter, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// tokenize splits a reply into word-sized stream tokens, keeping the
// separating spaces so concatenation reproduces the text exactly.
func tokenize(text string) []string {
	words := strings.SplitAfter(text, " ")
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func (s *Server) quotaExhausted(sessionID string) bool {
	if s.cfg.Behavior.QuotaLimit <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[sessionID] >= s.cfg.Behavior.QuotaLimit
}

func (s *Server) recordExchange(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[sessionID]++
}

func (s *Server) nextReply(sessionID string) (reply string, injectError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replies := s.cfg.Behavior.Replies
	n := s.rotation[sessionID]
	s.rotation[sessionID]++
	if s.cfg.Behavior.ErrorEvery > 0 && (n+1)%s.cfg.Behavior.ErrorEvery == 0 {
		return replies[n%len(replies)], true
	}
	return replies[n%len(replies)], false
}

func (s *Server) handleWidgetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key != s.cfg.Widget.Key {
		s.sendJSONError(w, http.StatusNotFound, "unknown widget key")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"widget": map[string]any{
			"settings": map[string]any{
				"planType":         s.cfg.Widget.PlanType,
				"welcomeMessage":   s.cfg.Widget.WelcomeMessage,
				"defaultLanguage":  s.cfg.Widget.DefaultLanguage,
				"maxMessageLength": s.cfg.Widget.MaxMessageLength,
			},
		},
	})
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WidgetKey string `json:"widgetKey"`
		SessionID string `json:"sessionId"`
		Rating    string `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.logger.Info("rating received",
		"session_id", payload.SessionID,
		"rating", payload.Rating,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WidgetKey string  `json:"widgetKey"`
		SessionID string  `json:"sessionId"`
		Name      *string `json:"name"`
		Email     string  `json:"email"`
		Message   *string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" {
		s.sendJSONError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	s.logger.Info("contact form received",
		"session_id", payload.SessionID,
		"email", payload.Email,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

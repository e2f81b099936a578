package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/askracha/askracha/internal/answer"
	"github.com/askracha/askracha/internal/logging"
)

// Answerer is the downstream answer pipeline. It is invoked only after a
// rate-limit check passes; this package knows nothing of its internals.
type Answerer interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// QueryAPI exposes the rate-limited product endpoints: one-shot document
// queries and chat sessions. All three routes sit behind the rate-limit
// middleware.
type QueryAPI struct {
	answerer Answerer
	logger   *logging.Logger

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewQueryAPI(answerer Answerer, logger *logging.Logger) *QueryAPI {
	if logger == nil {
		logger = logging.Default()
	}
	return &QueryAPI{
		answerer: answerer,
		logger:   logger.Named("query-api"),
		sessions: make(map[string]time.Time),
	}
}

// LimitedRoutes returns the paths that must sit behind the rate-limit
// middleware.
func (api *QueryAPI) LimitedRoutes() []string {
	return []string{"/api/query", "/api/chat/sessions", "/api/chat/query"}
}

// RegisterRoutes mounts the query endpoints.
func (api *QueryAPI) RegisterRoutes(r chi.Router) {
	r.Post("/api/query", api.handleQuery)
	r.Post("/api/chat/sessions", api.handleCreateSession)
	r.Post("/api/chat/query", api.handleChatQuery)
}

type queryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// handleQuery handles POST /api/query
func (api *QueryAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	api.answerQuestion(w, r, question)
}

// handleCreateSession handles POST /api/chat/sessions
func (api *QueryAPI) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()

	api.mu.Lock()
	api.sessions[sessionID] = time.Now()
	api.mu.Unlock()

	api.logger.Info("chat session created", logging.WithField("sessionId", sessionID))
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// handleChatQuery handles POST /api/chat/query
func (api *QueryAPI) handleChatQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	api.mu.Lock()
	_, exists := api.sessions[req.SessionID]
	api.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat session not found"})
		return
	}

	api.answerQuestion(w, r, question)
}

func (api *QueryAPI) answerQuestion(w http.ResponseWriter, r *http.Request, question string) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ans, err := api.answerer.Ask(ctx, question)
	if err != nil {
		api.logger.Error("answer pipeline failed", logging.WithField("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "answer service unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, ans)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

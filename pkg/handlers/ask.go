package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/services"
)

// AskAPI is the slice of the ask service the HTTP layer needs.
type AskAPI interface {
	Ask(ctx context.Context, userID string, targetID uuid.UUID, question string) (*services.AskResponse, error)
	AskStream(ctx context.Context, userID string, targetID uuid.UUID, question string) (*services.StreamingAnswer, error)
	HistoryByUser(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error)
	HistoryBySession(ctx context.Context, token string, limit int) ([]*models.ConversationTurn, error)
}

// AskHandler handles question-answering HTTP requests.
type AskHandler struct {
	ask    AskAPI
	logger *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(ask AskAPI, logger *zap.Logger) *AskHandler {
	return &AskHandler{ask: ask, logger: logger}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
	mux.HandleFunc("POST /api/ask/stream", h.AskStream)
	mux.HandleFunc("GET /api/history", h.History)
}

type askRequest struct {
	TargetDatabaseID uuid.UUID `json:"target_database_id"`
	Question         string    `json:"question"`
}

// parseAskRequest reads the caller identity and request body. The user
// id comes from the X-User-ID header set by the auth layer in front of
// the engine.
func (h *AskHandler) parseAskRequest(w http.ResponseWriter, r *http.Request) (string, *askRequest, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return "", nil, false
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return "", nil, false
	}
	if req.TargetDatabaseID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "missing_target", "target_database_id is required")
		return "", nil, false
	}
	return userID, &req, true
}

// Ask handles POST /api/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.parseAskRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.ask.Ask(r.Context(), userID, req.TargetDatabaseID, req.Question)
	if err != nil {
		h.logger.Error("ask pipeline failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "ask_failed", "failed to answer the question")
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AskStream handles POST /api/ask/stream as server-sent events. The
// accepted query and row preview arrive first in a meta event, answer
// fragments follow as chunk events, and a done event closes the
// stream.
func (h *AskHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.parseAskRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	answer, err := h.ask.AskStream(r.Context(), userID, req.TargetDatabaseID, req.Question)
	if err != nil {
		h.logger.Error("ask stream failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "ask_failed", "failed to answer the question")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.writeEvent(w, "meta", map[string]any{
		"success":       answer.Success,
		"sql_query":     answer.SQLQuery,
		"rows":          answer.Rows,
		"row_count":     answer.RowCount,
		"error":         answer.Error,
		"session_token": answer.SessionToken,
	})
	flusher.Flush()

	for chunk := range answer.Chunks {
		if chunk.Done {
			payload := map[string]any{"done": true}
			if chunk.Err != nil {
				payload["error"] = "the answer stream was interrupted"
			}
			h.writeEvent(w, "done", payload)
			flusher.Flush()
			continue
		}
		h.writeEvent(w, "chunk", map[string]any{"content": chunk.Content})
		flusher.Flush()
	}
}

// History handles GET /api/history. With a session query parameter it
// returns that session's turns; otherwise the caller's recent turns
// across all sessions.
func (h *AskHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	token := r.URL.Query().Get("session")
	turns, err := h.historyFor(r, userID, token, limit)
	if err != nil {
		h.logger.Error("failed to load history", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "history_failed", "failed to load history")
		return
	}
	if turns == nil {
		turns = make([]*models.ConversationTurn, 0)
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"turns": turns,
		"count": len(turns),
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AskHandler) historyFor(r *http.Request, userID, token string, limit int) ([]*models.ConversationTurn, error) {
	if token != "" {
		return h.ask.HistoryBySession(r.Context(), token, limit)
	}
	return h.ask.HistoryByUser(r.Context(), userID, limit)
}

func (h *AskHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *AskHandler) writeEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal event payload", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

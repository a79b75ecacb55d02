package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/services"
)

type stubAskAPI struct {
	resp    *services.AskResponse
	stream  *services.StreamingAnswer
	history []*models.ConversationTurn

	lastUserID   string
	lastTargetID uuid.UUID
	lastQuestion string
}

func (s *stubAskAPI) Ask(_ context.Context, userID string, targetID uuid.UUID, question string) (*services.AskResponse, error) {
	s.lastUserID, s.lastTargetID, s.lastQuestion = userID, targetID, question
	return s.resp, nil
}

func (s *stubAskAPI) AskStream(_ context.Context, userID string, targetID uuid.UUID, question string) (*services.StreamingAnswer, error) {
	s.lastUserID, s.lastTargetID, s.lastQuestion = userID, targetID, question
	return s.stream, nil
}

func (s *stubAskAPI) HistoryByUser(_ context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	s.lastUserID = userID
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func (s *stubAskAPI) HistoryBySession(_ context.Context, token string, limit int) ([]*models.ConversationTurn, error) {
	return s.history, nil
}

func newAskRequest(t *testing.T, method, path, userID string, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	return req
}

func TestAskHandler_Ask(t *testing.T) {
	targetID := uuid.New()
	stub := &stubAskAPI{resp: &services.AskResponse{
		Success:  true,
		Question: "how many customers?",
		SQLQuery: "SELECT COUNT(*) AS n FROM customers",
		RowCount: 1,
		Answer:   "You have 42 customers.",
	}}
	handler := NewAskHandler(stub, zap.NewNop())

	body := `{"target_database_id":"` + targetID.String() + `","question":"how many customers?"}`
	req := newAskRequest(t, http.MethodPost, "/api/ask", "u1", body)
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", stub.lastUserID)
	assert.Equal(t, targetID, stub.lastTargetID)
	assert.Equal(t, "how many customers?", stub.lastQuestion)

	var resp services.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Answer, "42 customers")
}

func TestAskHandler_MissingUserHeader(t *testing.T) {
	handler := NewAskHandler(&stubAskAPI{}, zap.NewNop())

	req := newAskRequest(t, http.MethodPost, "/api/ask", "", `{"question":"hi"}`)
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAskHandler_MissingTarget(t *testing.T) {
	handler := NewAskHandler(&stubAskAPI{}, zap.NewNop())

	req := newAskRequest(t, http.MethodPost, "/api/ask", "u1", `{"question":"hi"}`)
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_AskStream(t *testing.T) {
	chunks := make(chan llm.StreamChunk, 3)
	chunks <- llm.StreamChunk{Content: "You have "}
	chunks <- llm.StreamChunk{Content: "42 customers."}
	chunks <- llm.StreamChunk{Done: true}
	close(chunks)

	targetID := uuid.New()
	stub := &stubAskAPI{stream: &services.StreamingAnswer{
		Success:  true,
		SQLQuery: "SELECT COUNT(*) AS n FROM customers",
		RowCount: 1,
		Chunks:   chunks,
	}}
	handler := NewAskHandler(stub, zap.NewNop())

	body := `{"target_database_id":"` + targetID.String() + `","question":"how many?"}`
	req := newAskRequest(t, http.MethodPost, "/api/ask/stream", "u1", body)
	rec := httptest.NewRecorder()

	handler.AskStream(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := rec.Body.String()
	assert.Contains(t, events, "event: meta")
	assert.Contains(t, events, "SELECT COUNT(*)")
	assert.Contains(t, events, "event: chunk")
	assert.Contains(t, events, "42 customers.")
	assert.Contains(t, events, "event: done")
}

func TestAskHandler_History(t *testing.T) {
	query := "SELECT name FROM customers"
	stub := &stubAskAPI{history: []*models.ConversationTurn{
		{UserID: "u1", Question: "who are our customers?", SQLQuery: &query, Answer: "Acme and Globex."},
	}}
	handler := NewAskHandler(stub, zap.NewNop())

	req := newAskRequest(t, http.MethodGet, "/api/history?limit=5", "u1", "")
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Turns []models.ConversationTurn `json:"turns"`
		Count int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "who are our customers?", resp.Turns[0].Question)
}

func TestAskHandler_HistoryInvalidLimit(t *testing.T) {
	handler := NewAskHandler(&stubAskAPI{}, zap.NewNop())

	req := newAskRequest(t, http.MethodGet, "/api/history?limit=0", "u1", "")
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

type memDatasourceRepo struct {
	targets []*models.TargetDatabase
}

func (m *memDatasourceRepo) Create(_ context.Context, target *models.TargetDatabase) error {
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	m.targets = append(m.targets, target)
	return nil
}

func (m *memDatasourceRepo) Get(_ context.Context, id uuid.UUID, userID string) (*models.TargetDatabase, error) {
	for _, t := range m.targets {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memDatasourceRepo) ListByUser(_ context.Context, userID string) ([]*models.TargetDatabase, error) {
	var out []*models.TargetDatabase
	for _, t := range m.targets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memDatasourceRepo) Delete(_ context.Context, id uuid.UUID, userID string) error {
	for i, t := range m.targets {
		if t.ID == id && t.UserID == userID {
			m.targets = append(m.targets[:i], m.targets[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func TestDatasourceHandler_CreateAndList(t *testing.T) {
	repo := &memDatasourceRepo{}
	handler := NewDatasourceHandler(repo, zap.NewNop())

	body := `{"name":"shop-db","dialect":"mysql","host":"db.internal","username":"reader","password":"s3cret","database":"shop"}`
	req := newAskRequest(t, http.MethodPost, "/api/datasources", "u1", body)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	// The password never appears in the response.
	assert.NotContains(t, rec.Body.String(), "s3cret")

	listReq := newAskRequest(t, http.MethodGet, "/api/datasources", "u1", "")
	listRec := httptest.NewRecorder()
	handler.List(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)
	var resp struct {
		Datasources []models.TargetDatabase `json:"datasources"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	require.Len(t, resp.Datasources, 1)
	assert.Equal(t, "shop-db", resp.Datasources[0].Name)
}

func TestDatasourceHandler_CreateRejectsUnknownDialect(t *testing.T) {
	handler := NewDatasourceHandler(&memDatasourceRepo{}, zap.NewNop())

	body := `{"name":"legacy","dialect":"foxpro"}`
	req := newAskRequest(t, http.MethodPost, "/api/datasources", "u1", body)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasourceHandler_ListIsScopedToUser(t *testing.T) {
	repo := &memDatasourceRepo{}
	require.NoError(t, repo.Create(context.Background(), &models.TargetDatabase{
		UserID: "someone-else", Name: "their-db", Dialect: models.DialectMySQL,
	}))
	handler := NewDatasourceHandler(repo, zap.NewNop())

	req := newAskRequest(t, http.MethodGet, "/api/datasources", "u1", "")
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "their-db")
}

func TestDatasourceHandler_Delete(t *testing.T) {
	repo := &memDatasourceRepo{}
	target := &models.TargetDatabase{UserID: "u1", Name: "shop-db", Dialect: models.DialectMySQL}
	require.NoError(t, repo.Create(context.Background(), target))
	handler := NewDatasourceHandler(repo, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := newAskRequest(t, http.MethodDelete, "/api/datasources/"+target.ID.String(), "u1", "")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	again := newAskRequest(t, http.MethodDelete, "/api/datasources/"+target.ID.String(), "u1", "")
	againRec := httptest.NewRecorder()
	mux.ServeHTTP(againRec, again)
	assert.Equal(t, http.StatusNotFound, againRec.Code)
}

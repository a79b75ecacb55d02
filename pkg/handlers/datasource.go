package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
)

// DatasourceHandler manages registered target databases.
type DatasourceHandler struct {
	datasources repositories.DatasourceRepository
	logger      *zap.Logger
}

// NewDatasourceHandler creates a new datasource handler.
func NewDatasourceHandler(datasources repositories.DatasourceRepository, logger *zap.Logger) *DatasourceHandler {
	return &DatasourceHandler{datasources: datasources, logger: logger}
}

// RegisterRoutes registers the datasource handler's routes.
func (h *DatasourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasources", h.Create)
	mux.HandleFunc("GET /api/datasources", h.List)
	mux.HandleFunc("DELETE /api/datasources/{id}", h.Delete)
}

type createDatasourceRequest struct {
	Name     string `json:"name"`
	Dialect  string `json:"dialect"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	FilePath string `json:"file_path"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Create handles POST /api/datasources
func (h *DatasourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	var req createDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	dialect := models.Dialect(req.Dialect)
	if !dialect.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid_dialect", "dialect must be one of: mysql, postgresql, sqlserver, oracle, h2")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	target := &models.TargetDatabase{
		UserID:   userID,
		Name:     req.Name,
		Dialect:  dialect,
		Host:     req.Host,
		Port:     req.Port,
		FilePath: req.FilePath,
		Username: req.Username,
		Password: req.Password,
		Database: req.Database,
	}
	if err := h.datasources.Create(r.Context(), target); err != nil {
		h.logger.Error("failed to create datasource", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "failed to register the database")
		return
	}

	// Password is json:"-" on the model, so the response carries no secret.
	if err := WriteJSON(w, http.StatusCreated, target); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/datasources
func (h *DatasourceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	targets, err := h.datasources.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list datasources", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "failed to list databases")
		return
	}
	if targets == nil {
		targets = make([]*models.TargetDatabase, 0)
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"datasources": targets}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/datasources/{id}
func (h *DatasourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	if err := h.datasources.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "database connection not found")
			return
		}
		h.logger.Error("failed to delete datasource", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete the database connection")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DatasourceHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

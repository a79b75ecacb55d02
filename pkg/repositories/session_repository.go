package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/database"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// SessionRepository provides data access for conversation sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetActive(ctx context.Context, userID string, targetDatabaseID uuid.UUID) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, id uuid.UUID) error
	DeactivateForTarget(ctx context.Context, userID string, targetDatabaseID uuid.UUID) error
}

type sessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *database.DB) SessionRepository {
	return &sessionRepository{db: db}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = now
	session.LastActivityAt = now
	session.Active = true

	query := `
		INSERT INTO sessions (
			id, token, user_id, target_database_id, active,
			last_activity_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.Token, session.UserID, session.TargetDatabaseID,
		session.Active, session.LastActivityAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetActive returns the most recently active session for the pair, so
// a returning user continues their conversation instead of forking it.
func (r *sessionRepository) GetActive(ctx context.Context, userID string, targetDatabaseID uuid.UUID) (*models.Session, error) {
	query := `
		SELECT id, token, user_id, target_database_id, active,
			last_activity_at, created_at
		FROM sessions
		WHERE user_id = $1 AND target_database_id = $2 AND active
		ORDER BY last_activity_at DESC
		LIMIT 1`

	session, err := r.scanOne(r.db.QueryRow(ctx, query, userID, targetDatabaseID))
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, token, user_id, target_database_id, active,
			last_activity_at, created_at
		FROM sessions
		WHERE token = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, token))
}

func (r *sessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_activity_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeactivateForTarget(ctx context.Context, userID string, targetDatabaseID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET active = false WHERE user_id = $1 AND target_database_id = $2`,
		userID, targetDatabaseID)
	if err != nil {
		return fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) scanOne(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID, &session.Token, &session.UserID, &session.TargetDatabaseID,
		&session.Active, &session.LastActivityAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &session, nil
}

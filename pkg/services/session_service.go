package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
)

// SessionService resolves conversation sessions and records turns.
type SessionService struct {
	sessions repositories.SessionRepository
	turns    repositories.ConversationRepository
	logger   *zap.Logger
}

// NewSessionService creates a session service.
func NewSessionService(sessions repositories.SessionRepository, turns repositories.ConversationRepository, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		turns:    turns,
		logger:   logger.Named("session"),
	}
}

// Resolve returns the user's active session for the target database,
// minting a new one when none exists. Earlier sessions for the same
// pair are deactivated before a new one is created, keeping at most
// one active session per (user, target database).
func (s *SessionService) Resolve(ctx context.Context, userID string, targetDatabaseID uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetActive(ctx, userID, targetDatabaseID)
	if err == nil {
		if touchErr := s.sessions.Touch(ctx, session.ID); touchErr != nil {
			s.logger.Warn("failed to touch session", zap.Error(touchErr))
		}
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if err := s.sessions.DeactivateForTarget(ctx, userID, targetDatabaseID); err != nil {
		s.logger.Warn("failed to deactivate stale sessions", zap.Error(err))
	}

	session = &models.Session{
		Token:            uuid.NewString(),
		UserID:           userID,
		TargetDatabaseID: targetDatabaseID,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordTurn persists a conversation turn. Persistence failures are
// logged and swallowed: losing a history row must never fail a request
// that already produced an answer.
func (s *SessionService) RecordTurn(ctx context.Context, turn *models.ConversationTurn) {
	if err := s.turns.Save(ctx, turn); err != nil {
		s.logger.Error("failed to record conversation turn",
			zap.String("user_id", turn.UserID),
			zap.Error(err))
	}
}

// HistoryByUser returns the user's most recent turns, newest first.
func (s *SessionService) HistoryByUser(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	return s.turns.GetByUser(ctx, userID, limit)
}

// HistoryBySession returns the turns of the session identified by
// token, newest first.
func (s *SessionService) HistoryBySession(ctx context.Context, token string, limit int) ([]*models.ConversationTurn, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.turns.GetBySession(ctx, session.ID, limit)
}

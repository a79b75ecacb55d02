package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbchat-ai/dbchat-engine/pkg/database"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// ConversationRepository provides data access for conversation turns.
// Turns are append-only; there is no update or delete.
type ConversationRepository interface {
	Save(ctx context.Context, turn *models.ConversationTurn) error
	GetBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error)
}

type conversationRepository struct {
	db *database.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *database.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

var _ ConversationRepository = (*conversationRepository)(nil)

func (r *conversationRepository) Save(ctx context.Context, turn *models.ConversationTurn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.CreatedAt = time.Now()

	// Empty JSONB is stored as NULL rather than an empty byte string.
	var resultJSON any
	if len(turn.ResultJSON) > 0 {
		resultJSON = turn.ResultJSON
	}

	query := `
		INSERT INTO conversation_turns (
			id, session_id, user_id, question, sql_query,
			result_json, answer, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		turn.ID, turn.SessionID, turn.UserID, turn.Question, turn.SQLQuery,
		resultJSON, turn.Answer, turn.ErrorMessage, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}
	return nil
}

func (r *conversationRepository) GetBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	query := `
		SELECT id, session_id, user_id, question, sql_query,
			result_json, answer, error_message, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.list(ctx, query, sessionID, limit)
}

func (r *conversationRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	query := `
		SELECT id, session_id, user_id, question, sql_query,
			result_json, answer, error_message, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.list(ctx, query, userID, limit)
}

func (r *conversationRepository) list(ctx context.Context, query string, args ...any) ([]*models.ConversationTurn, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []*models.ConversationTurn
	for rows.Next() {
		var turn models.ConversationTurn
		err := rows.Scan(
			&turn.ID, &turn.SessionID, &turn.UserID, &turn.Question, &turn.SQLQuery,
			&turn.ResultJSON, &turn.Answer, &turn.ErrorMessage, &turn.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}

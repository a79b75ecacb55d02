package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

func TestSessionService_MintsThenReuses(t *testing.T) {
	repo := &fakeSessionRepo{}
	turns := &fakeConversationRepo{}
	svc := NewSessionService(repo, turns, zap.NewNop())
	ctx := context.Background()
	targetID := uuid.New()

	first, err := svc.Resolve(ctx, "u1", targetID)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)
	assert.True(t, first.Active)

	second, err := svc.Resolve(ctx, "u1", targetID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestSessionService_SeparateSessionsPerTarget(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := NewSessionService(repo, &fakeConversationRepo{}, zap.NewNop())
	ctx := context.Background()

	a, err := svc.Resolve(ctx, "u1", uuid.New())
	require.NoError(t, err)
	b, err := svc.Resolve(ctx, "u1", uuid.New())
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, repo.creates)
}

// wrappedNotFoundSessionRepo returns ErrNotFound wrapped with context,
// as a repository adding query detail would.
type wrappedNotFoundSessionRepo struct {
	*fakeSessionRepo
}

func (w *wrappedNotFoundSessionRepo) GetActive(context.Context, string, uuid.UUID) (*models.Session, error) {
	return nil, fmt.Errorf("query active session: %w", apperrors.ErrNotFound)
}

func TestSessionService_MintsOnWrappedNotFound(t *testing.T) {
	inner := &fakeSessionRepo{}
	svc := NewSessionService(&wrappedNotFoundSessionRepo{inner}, &fakeConversationRepo{}, zap.NewNop())

	session, err := svc.Resolve(context.Background(), "u1", uuid.New())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, 1, inner.creates)
}

func TestSessionService_RecordTurnSwallowsFailure(t *testing.T) {
	repo := &fakeSessionRepo{}
	turns := &fakeConversationRepo{saveErr: errors.New("store down")}
	svc := NewSessionService(repo, turns, zap.NewNop())

	// Must not panic or surface the error.
	svc.RecordTurn(context.Background(), &models.ConversationTurn{
		SessionID: uuid.New(),
		UserID:    "u1",
		Question:  "how many orders?",
	})
	assert.Empty(t, turns.turns)
}

func TestSessionService_HistoryBySession(t *testing.T) {
	repo := &fakeSessionRepo{}
	turns := &fakeConversationRepo{}
	svc := NewSessionService(repo, turns, zap.NewNop())
	ctx := context.Background()

	session, err := svc.Resolve(ctx, "u1", uuid.New())
	require.NoError(t, err)

	for _, q := range []string{"first", "second", "third"} {
		svc.RecordTurn(ctx, &models.ConversationTurn{
			SessionID: session.ID,
			UserID:    "u1",
			Question:  q,
		})
	}

	history, err := svc.HistoryBySession(ctx, session.Token, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, "third", history[0].Question)
	assert.Equal(t, "second", history[1].Question)
}

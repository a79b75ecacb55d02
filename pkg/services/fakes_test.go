package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
)

// In-memory fakes for the engine store. None of them are safe for
// concurrent use; tests drive them from one goroutine.

type fakeDatasourceRepo struct {
	targets []*models.TargetDatabase
}

var _ repositories.DatasourceRepository = (*fakeDatasourceRepo)(nil)

func (f *fakeDatasourceRepo) Create(_ context.Context, target *models.TargetDatabase) error {
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	f.targets = append(f.targets, target)
	return nil
}

func (f *fakeDatasourceRepo) Get(_ context.Context, id uuid.UUID, userID string) (*models.TargetDatabase, error) {
	for _, t := range f.targets {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeDatasourceRepo) ListByUser(_ context.Context, userID string) ([]*models.TargetDatabase, error) {
	var out []*models.TargetDatabase
	for _, t := range f.targets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeDatasourceRepo) Delete(_ context.Context, id uuid.UUID, userID string) error {
	for i, t := range f.targets {
		if t.ID == id && t.UserID == userID {
			f.targets = append(f.targets[:i], f.targets[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakeSessionRepo struct {
	sessions []*models.Session
	creates  int
}

var _ repositories.SessionRepository = (*fakeSessionRepo)(nil)

func (f *fakeSessionRepo) Create(_ context.Context, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Active = true
	session.CreatedAt = time.Now()
	session.LastActivityAt = session.CreatedAt
	f.sessions = append(f.sessions, session)
	f.creates++
	return nil
}

func (f *fakeSessionRepo) GetActive(_ context.Context, userID string, targetDatabaseID uuid.UUID) (*models.Session, error) {
	var best *models.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.TargetDatabaseID == targetDatabaseID && s.Active {
			if best == nil || s.LastActivityAt.After(best.LastActivityAt) {
				best = s
			}
		}
	}
	if best == nil {
		return nil, apperrors.ErrNotFound
	}
	return best, nil
}

func (f *fakeSessionRepo) GetByToken(_ context.Context, token string) (*models.Session, error) {
	for _, s := range f.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeSessionRepo) Touch(_ context.Context, id uuid.UUID) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.LastActivityAt = time.Now()
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeactivateForTarget(_ context.Context, userID string, targetDatabaseID uuid.UUID) error {
	for _, s := range f.sessions {
		if s.UserID == userID && s.TargetDatabaseID == targetDatabaseID {
			s.Active = false
		}
	}
	return nil
}

type fakeConversationRepo struct {
	turns   []*models.ConversationTurn
	saveErr error
}

var _ repositories.ConversationRepository = (*fakeConversationRepo)(nil)

func (f *fakeConversationRepo) Save(_ context.Context, turn *models.ConversationTurn) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeConversationRepo) GetBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	var out []*models.ConversationTurn
	for i := len(f.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if f.turns[i].SessionID == sessionID {
			out = append(out, f.turns[i])
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) GetByUser(_ context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	var out []*models.ConversationTurn
	for i := len(f.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if f.turns[i].UserID == userID {
			out = append(out, f.turns[i])
		}
	}
	return out, nil
}

type fakeUsageRepo struct {
	counts     map[string]int
	increments int
}

var _ repositories.UsageRepository = (*fakeUsageRepo)(nil)

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counts: make(map[string]int)}
}

func (f *fakeUsageRepo) CountForDay(_ context.Context, userID string, _ time.Time) (int, error) {
	return f.counts[userID], nil
}

func (f *fakeUsageRepo) Increment(_ context.Context, userID string, _ time.Time) error {
	f.counts[userID]++
	f.increments++
	return nil
}

type fakeIntrospector struct {
	doc   *models.SchemaDocument
	err   error
	calls int
}

func (f *fakeIntrospector) Introspect(_ context.Context, _ *models.TargetDatabase) (*models.SchemaDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeExecutor struct {
	result    *models.ExecutionResult
	err       error
	calls     int
	lastQuery string
}

func (f *fakeExecutor) Execute(_ context.Context, _ *models.TargetDatabase, query string) (*models.ExecutionResult, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
)

func TestUsageService_UnderLimit(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.counts["u1"] = 9
	svc := NewUsageService(repo, true, 10, zap.NewNop())

	assert.NoError(t, svc.Allowed(context.Background(), "u1"))
}

func TestUsageService_AtLimit(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.counts["u1"] = 10
	svc := NewUsageService(repo, true, 10, zap.NewNop())

	err := svc.Allowed(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryQuotaExceeded, apperrors.Classify(err))
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
}

func TestUsageService_DisabledTierNeverLimits(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.counts["u1"] = 1000
	svc := NewUsageService(repo, false, 10, zap.NewNop())

	assert.NoError(t, svc.Allowed(context.Background(), "u1"))

	svc.RecordQuery(context.Background(), "u1")
	assert.Equal(t, 0, repo.increments)
}

func TestUsageService_RecordQueryIncrements(t *testing.T) {
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, true, 10, zap.NewNop())

	svc.RecordQuery(context.Background(), "u1")
	svc.RecordQuery(context.Background(), "u1")
	assert.Equal(t, 2, repo.counts["u1"])
}

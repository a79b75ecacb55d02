package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
)

// UsageService enforces the shared-tier daily query quota. The check
// runs before any model call so over-quota requests cost nothing; the
// counter is incremented only after a completed answer.
type UsageService struct {
	repo       repositories.UsageRepository
	sharedTier bool
	dailyLimit int
	now        func() time.Time
	logger     *zap.Logger
}

// NewUsageService creates a quota governor. When sharedTier is false
// the quota is not enforced at all.
func NewUsageService(repo repositories.UsageRepository, sharedTier bool, dailyLimit int, logger *zap.Logger) *UsageService {
	return &UsageService{
		repo:       repo,
		sharedTier: sharedTier,
		dailyLimit: dailyLimit,
		now:        time.Now,
		logger:     logger.Named("usage"),
	}
}

// Allowed returns a quota error when the user has exhausted today's
// budget. Counter reads that fail are treated as allowed: an engine
// store hiccup should not lock users out.
func (u *UsageService) Allowed(ctx context.Context, userID string) error {
	if !u.sharedTier {
		return nil
	}

	count, err := u.repo.CountForDay(ctx, userID, u.today())
	if err != nil {
		u.logger.Warn("failed to read usage counter", zap.Error(err))
		return nil
	}
	if count >= u.dailyLimit {
		return apperrors.New(apperrors.CategoryQuotaExceeded,
			"Daily query limit exceeded", apperrors.ErrQuotaExceeded)
	}
	return nil
}

// RecordQuery increments today's counter after a completed answer.
func (u *UsageService) RecordQuery(ctx context.Context, userID string) {
	if !u.sharedTier {
		return
	}
	if err := u.repo.Increment(ctx, userID, u.today()); err != nil {
		u.logger.Error("failed to increment usage counter",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// today returns the current UTC calendar day. Quotas reset at UTC
// midnight for every user regardless of their timezone.
func (u *UsageService) today() time.Time {
	t := u.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

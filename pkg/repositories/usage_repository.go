package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dbchat-ai/dbchat-engine/pkg/database"
)

// UsageRepository tracks per-user daily query counts for the shared
// model tier.
type UsageRepository interface {
	CountForDay(ctx context.Context, userID string, day time.Time) (int, error)
	Increment(ctx context.Context, userID string, day time.Time) error
}

type usageRepository struct {
	db *database.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *database.DB) UsageRepository {
	return &usageRepository{db: db}
}

var _ UsageRepository = (*usageRepository)(nil)

func (r *usageRepository) CountForDay(ctx context.Context, userID string, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT query_count FROM usage_counters WHERE user_id = $1 AND day = $2`,
		userID, day.Format("2006-01-02")).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return count, nil
}

// Increment bumps the counter in a single statement so concurrent
// requests for the same user never lose updates.
func (r *usageRepository) Increment(ctx context.Context, userID string, day time.Time) error {
	query := `
		INSERT INTO usage_counters (user_id, day, query_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day)
		DO UPDATE SET query_count = usage_counters.query_count + 1`

	_, err := r.db.Exec(ctx, query, userID, day.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return nil
}

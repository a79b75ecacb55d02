// Package services implements the ask pipeline: SQL generation with
// bounded retries, answer synthesis, session tracking, usage quotas
// and the orchestrating ask service.
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/prompts"
	sqlguard "github.com/dbchat-ai/dbchat-engine/pkg/sql"
)

// SQLGenerator turns a question into a validated SELECT statement with
// a bounded retry loop. Rejected attempts feed their reason back into
// the next prompt so the model can self-correct.
type SQLGenerator struct {
	client      llm.Client
	maxRetries  int
	temperature float64
	logger      *zap.Logger
}

// NewSQLGenerator creates a generator that makes at most maxRetries+1
// attempts per question.
func NewSQLGenerator(client llm.Client, maxRetries int, temperature float64, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{
		client:      client,
		maxRetries:  maxRetries,
		temperature: temperature,
		logger:      logger.Named("sqlgen"),
	}
}

// Generate returns a query that passed the security gate, or
// ErrRetriesExhausted wrapping the last rejection reason. It never
// returns unvalidated SQL.
func (g *SQLGenerator) Generate(ctx context.Context, question string, schema *models.SchemaDocument) (string, error) {
	var lastError string

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		prompt := prompts.BuildSQLGenerationPrompt(question, schema, lastError)

		raw, err := g.client.GenerateResponse(ctx, prompt, prompts.SQLGenerationSystemMessage(), g.temperature)
		if err != nil {
			// Backend failures are not validation rejections; retrying
			// with the same prompt budget will not fix an outage.
			return "", llm.ClassifyError(err)
		}

		query := sqlguard.CleanGenerated(raw)
		if query == "" {
			lastError = "the response did not contain a SQL statement"
			g.logger.Warn("generation attempt produced no SQL", zap.Int("attempt", attempt))
			continue
		}

		if rejection := sqlguard.Validate(query); rejection != nil {
			lastError = rejection.Message()
			g.logger.Warn("generated SQL rejected",
				zap.Int("attempt", attempt),
				zap.String("reason", string(rejection.Reason)))
			continue
		}

		return query, nil
	}

	return "", fmt.Errorf("%w after %d attempts: %s",
		apperrors.ErrRetriesExhausted, g.maxRetries+1, lastError)
}

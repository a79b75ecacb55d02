package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

func generatorSchema() *models.SchemaDocument {
	return &models.SchemaDocument{
		DatabaseName: "shop",
		Dialect:      models.DialectMySQL,
		Tables: []models.SchemaTable{
			{Name: "customers", Columns: []models.SchemaColumn{
				{Name: "id", DataType: "bigint"},
				{Name: "name", DataType: "varchar"},
			}},
		},
	}
}

func TestSQLGenerator_AcceptsCleanedQuery(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "```sql\nSELECT name FROM customers\n```", nil
	}

	gen := NewSQLGenerator(mock, 2, 0.1, zap.NewNop())
	query, err := gen.Generate(context.Background(), "who are our customers?", generatorSchema())

	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM customers", query)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestSQLGenerator_FeedsRejectionIntoNextPrompt(t *testing.T) {
	mock := llm.NewMockClient()
	responses := []string{
		"DELETE FROM customers",
		"SELECT name FROM customers",
	}
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		r := responses[0]
		responses = responses[1:]
		return r, nil
	}

	gen := NewSQLGenerator(mock, 2, 0.1, zap.NewNop())
	query, err := gen.Generate(context.Background(), "remove old customers", generatorSchema())

	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM customers", query)
	require.Equal(t, 2, mock.GenerateResponseCalls)
	assert.NotContains(t, mock.Prompts[0], "Previous Attempt Failed")
	assert.Contains(t, mock.Prompts[1], "query is not a SELECT statement")
}

func TestSQLGenerator_ExhaustsRetriesAgainstRejectingBackend(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "DROP TABLE customers", nil
	}

	gen := NewSQLGenerator(mock, 2, 0.1, zap.NewNop())
	query, err := gen.Generate(context.Background(), "drop everything", generatorSchema())

	require.Error(t, err)
	assert.Empty(t, query)
	// Exactly maxRetries+1 attempts, then terminal failure.
	assert.Equal(t, 3, mock.GenerateResponseCalls)
	assert.ErrorIs(t, err, apperrors.ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "not a SELECT statement")
	assert.Equal(t, apperrors.CategoryValidationRejected, apperrors.Classify(err))
}

func TestSQLGenerator_EmptyResponseCountsAsRejection(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "```sql\n```", nil
	}

	gen := NewSQLGenerator(mock, 1, 0.1, zap.NewNop())
	_, err := gen.Generate(context.Background(), "anything", generatorSchema())

	require.Error(t, err)
	assert.Equal(t, 2, mock.GenerateResponseCalls)
	assert.Contains(t, err.Error(), "did not contain a SQL statement")
}

func TestSQLGenerator_BackendErrorIsNotRetried(t *testing.T) {
	mock := llm.NewMockClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "", errors.New("error, status code: 503, message: overloaded")
	}

	gen := NewSQLGenerator(mock, 5, 0.1, zap.NewNop())
	_, err := gen.Generate(context.Background(), "anything", generatorSchema())

	require.Error(t, err)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
	assert.NotErrorIs(t, err, apperrors.ErrRetriesExhausted)
}

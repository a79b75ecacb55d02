package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/prompts"
)

// AnswerService turns query results into conversational answers. The
// sync and streaming paths share the same prompt so their answers only
// differ in delivery.
type AnswerService struct {
	client      llm.Client
	temperature float64
	logger      *zap.Logger
}

// NewAnswerService creates an answer synthesizer.
func NewAnswerService(client llm.Client, temperature float64, logger *zap.Logger) *AnswerService {
	return &AnswerService{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("answer"),
	}
}

// Synthesize produces a complete answer in one call.
func (s *AnswerService) Synthesize(ctx context.Context, question, query string, result *models.ExecutionResult, displayed []map[string]any) (string, error) {
	prompt := prompts.BuildAnswerPrompt(question, query, result, displayed)
	answer, err := s.client.GenerateResponse(ctx, prompt, prompts.AnswerSystemMessage(), s.temperature)
	if err != nil {
		return "", fmt.Errorf("answer synthesis: %w", llm.ClassifyError(err))
	}
	return answer, nil
}

// Stream produces the same answer as Synthesize but as a consumer-paced
// fragment sequence ending with a Done marker.
func (s *AnswerService) Stream(ctx context.Context, question, query string, result *models.ExecutionResult, displayed []map[string]any) (<-chan llm.StreamChunk, error) {
	prompt := prompts.BuildAnswerPrompt(question, query, result, displayed)
	ch, err := s.client.StreamResponse(ctx, prompt, prompts.AnswerSystemMessage(), s.temperature)
	if err != nil {
		return nil, fmt.Errorf("answer stream: %w", llm.ClassifyError(err))
	}
	return ch, nil
}

// SmallTalk replies to conversational input without any schema or SQL
// involvement.
func (s *AnswerService) SmallTalk(ctx context.Context, question string) (string, error) {
	prompt := prompts.BuildSmallTalkPrompt(question)
	answer, err := s.client.GenerateResponse(ctx, prompt, prompts.AnswerSystemMessage(), s.temperature)
	if err != nil {
		return "", fmt.Errorf("small talk reply: %w", llm.ClassifyError(err))
	}
	return answer, nil
}

// SmallTalkStream is the streaming variant of SmallTalk.
func (s *AnswerService) SmallTalkStream(ctx context.Context, question string) (<-chan llm.StreamChunk, error) {
	prompt := prompts.BuildSmallTalkPrompt(question)
	ch, err := s.client.StreamResponse(ctx, prompt, prompts.AnswerSystemMessage(), s.temperature)
	if err != nil {
		return nil, fmt.Errorf("small talk stream: %w", llm.ClassifyError(err))
	}
	return ch, nil
}

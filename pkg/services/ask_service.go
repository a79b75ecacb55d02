package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/config"
	"github.com/dbchat-ai/dbchat-engine/pkg/llm"
	"github.com/dbchat-ai/dbchat-engine/pkg/logging"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
	"github.com/dbchat-ai/dbchat-engine/pkg/repositories"
	sqlguard "github.com/dbchat-ai/dbchat-engine/pkg/sql"
)

// SchemaIntrospector extracts a schema snapshot from a target database.
type SchemaIntrospector interface {
	Introspect(ctx context.Context, target *models.TargetDatabase) (*models.SchemaDocument, error)
}

// QueryExecutor runs a validated query against a target database.
type QueryExecutor interface {
	Execute(ctx context.Context, target *models.TargetDatabase, query string) (*models.ExecutionResult, error)
}

// AskResponse is the outcome of one question. Success=false responses
// carry a polite, user-facing Error and never partial results.
type AskResponse struct {
	Success      bool             `json:"success"`
	Question     string           `json:"question"`
	SQLQuery     string           `json:"sql_query,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count"`
	Answer       string           `json:"answer,omitempty"`
	Error        string           `json:"error,omitempty"`
	SessionToken string           `json:"session_token,omitempty"`
	ElapsedMs    int64            `json:"elapsed_ms,omitempty"`
}

// StreamingAnswer is the streaming counterpart of AskResponse: the
// query and rows are available immediately, the answer arrives as a
// finite chunk sequence ending with a Done marker.
type StreamingAnswer struct {
	Success      bool
	Question     string
	SQLQuery     string
	Rows         []map[string]any
	RowCount     int
	Error        string
	SessionToken string
	Chunks       <-chan llm.StreamChunk
}

// AskService orchestrates the full pipeline: quota, session, schema,
// SQL generation, execution, synthesis and history.
type AskService struct {
	datasources  repositories.DatasourceRepository
	sessions     *SessionService
	usage        *UsageService
	generator    *SQLGenerator
	answers      *AnswerService
	introspector SchemaIntrospector
	executor     QueryExecutor
	cfg          config.AskConfig
	logger       *zap.Logger
}

// NewAskService wires the pipeline together.
func NewAskService(
	datasources repositories.DatasourceRepository,
	sessions *SessionService,
	usage *UsageService,
	generator *SQLGenerator,
	answers *AnswerService,
	introspector SchemaIntrospector,
	executor QueryExecutor,
	cfg config.AskConfig,
	logger *zap.Logger,
) *AskService {
	return &AskService{
		datasources:  datasources,
		sessions:     sessions,
		usage:        usage,
		generator:    generator,
		answers:      answers,
		introspector: introspector,
		executor:     executor,
		cfg:          cfg,
		logger:       logger.Named("ask"),
	}
}

// Ask answers a question against the user's target database. Pipeline
// failures are returned as Success=false responses with a polite
// message; the error return is reserved for request-independent
// failures such as a broken engine store.
func (s *AskService) Ask(ctx context.Context, userID string, targetID uuid.UUID, question string) (*AskResponse, error) {
	start := time.Now()

	prep, failed := s.prepare(ctx, userID, targetID, question)
	if failed != nil {
		return failed, nil
	}

	if prep.schema == nil {
		// Conversational input: reply without schema or SQL.
		answer, err := s.answers.SmallTalk(ctx, question)
		if err != nil {
			return s.fail(ctx, prep, question, "", err), nil
		}
		resp := &AskResponse{
			Success:      true,
			Question:     question,
			Answer:       answer,
			SessionToken: prep.session.Token,
			ElapsedMs:    time.Since(start).Milliseconds(),
		}
		s.record(ctx, prep, question, "", nil, answer, "")
		return resp, nil
	}

	query, result, displayed, err := s.generateAndExecute(ctx, prep, question)
	if err != nil {
		return s.fail(ctx, prep, question, query, err), nil
	}

	answer, err := s.answers.Synthesize(ctx, question, query, result, displayed)
	if err != nil {
		return s.fail(ctx, prep, question, query, err), nil
	}

	s.usage.RecordQuery(ctx, userID)
	s.record(ctx, prep, question, query, displayed, answer, "")

	return &AskResponse{
		Success:      true,
		Question:     question,
		SQLQuery:     query,
		Rows:         displayed,
		RowCount:     result.RowCount,
		Answer:       answer,
		SessionToken: prep.session.Token,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}, nil
}

// AskStream is Ask with a streamed answer. The pipeline up to and
// including execution runs synchronously; only synthesis streams.
func (s *AskService) AskStream(ctx context.Context, userID string, targetID uuid.UUID, question string) (*StreamingAnswer, error) {
	prep, failed := s.prepare(ctx, userID, targetID, question)
	if failed != nil {
		return s.failedStream(failed), nil
	}

	if prep.schema == nil {
		chunks, err := s.answers.SmallTalkStream(ctx, question)
		if err != nil {
			return s.failedStream(s.fail(ctx, prep, question, "", err)), nil
		}
		return &StreamingAnswer{
			Success:      true,
			Question:     question,
			SessionToken: prep.session.Token,
			Chunks:       s.recordingChunks(ctx, prep, question, "", nil, chunks, false),
		}, nil
	}

	query, result, displayed, err := s.generateAndExecute(ctx, prep, question)
	if err != nil {
		return s.failedStream(s.fail(ctx, prep, question, query, err)), nil
	}

	chunks, err := s.answers.Stream(ctx, question, query, result, displayed)
	if err != nil {
		return s.failedStream(s.fail(ctx, prep, question, query, err)), nil
	}

	return &StreamingAnswer{
		Success:      true,
		Question:     question,
		SQLQuery:     query,
		Rows:         displayed,
		RowCount:     result.RowCount,
		SessionToken: prep.session.Token,
		Chunks:       s.recordingChunks(ctx, prep, question, query, displayed, chunks, true),
	}, nil
}

// HistoryByUser returns the user's recent turns, newest first.
func (s *AskService) HistoryByUser(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	return s.sessions.HistoryByUser(ctx, userID, limit)
}

// HistoryBySession returns a session's turns, newest first.
func (s *AskService) HistoryBySession(ctx context.Context, token string, limit int) ([]*models.ConversationTurn, error) {
	return s.sessions.HistoryBySession(ctx, token, limit)
}

// prepared carries pipeline state between stages. schema is nil for
// small-talk input.
type prepared struct {
	target  *models.TargetDatabase
	session *models.Session
	schema  *models.SchemaDocument
}

// prepare runs the stages common to Ask and AskStream: quota check,
// injection screening, target lookup, session resolution and schema
// extraction. A non-nil AskResponse means the request already failed.
func (s *AskService) prepare(ctx context.Context, userID string, targetID uuid.UUID, question string) (*prepared, *AskResponse) {
	if strings.TrimSpace(question) == "" {
		return nil, &AskResponse{
			Success:  false,
			Question: question,
			Error:    "Please ask a question.",
		}
	}

	if err := s.usage.Allowed(ctx, userID); err != nil {
		s.logger.Info("quota exceeded", zap.String("user_id", userID))
		return nil, &AskResponse{
			Success:  false,
			Question: question,
			Error:    "Daily query limit exceeded. Please try again tomorrow.",
		}
	}

	if hit := sqlguard.CheckQuestionForInjection(question); hit != nil {
		s.logger.Warn("question rejected by injection screen",
			zap.String("user_id", userID),
			zap.String("fingerprint", hit.Fingerprint))
		return nil, &AskResponse{
			Success:  false,
			Question: question,
			Error:    "That question could not be processed. Please rephrase it.",
		}
	}

	target, err := s.datasources.Get(ctx, targetID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &AskResponse{
				Success:  false,
				Question: question,
				Error:    "The selected database connection was not found.",
			}
		}
		return nil, &AskResponse{
			Success:  false,
			Question: question,
			Error:    "Something went wrong looking up the database connection.",
		}
	}

	session, err := s.sessions.Resolve(ctx, userID, targetID)
	if err != nil {
		s.logger.Error("failed to resolve session", zap.Error(err))
		return nil, &AskResponse{
			Success:  false,
			Question: question,
			Error:    "Something went wrong starting the conversation.",
		}
	}

	prep := &prepared{target: target, session: session}
	if IsSmallTalk(question) {
		return prep, nil
	}

	queryCtx, cancel := s.queryContext(ctx)
	defer cancel()
	schema, err := s.introspector.Introspect(queryCtx, target)
	if err != nil {
		s.logger.Warn("schema extraction failed",
			zap.String("target", target.Name),
			zap.String("error", logging.SanitizeError(err)))
		resp := s.fail(ctx, prep, question, "", err)
		return nil, resp
	}
	prep.schema = schema
	return prep, nil
}

// generateAndExecute produces a validated query, runs it and truncates
// the rows for display.
func (s *AskService) generateAndExecute(ctx context.Context, prep *prepared, question string) (string, *models.ExecutionResult, []map[string]any, error) {
	query, err := s.generator.Generate(ctx, question, prep.schema)
	if err != nil {
		return "", nil, nil, err
	}

	queryCtx, cancel := s.queryContext(ctx)
	defer cancel()
	result, err := s.executor.Execute(queryCtx, prep.target, query)
	if err != nil {
		return query, nil, nil, err
	}

	return query, result, result.Truncated(s.cfg.RowDisplayLimit).Rows, nil
}

// fail converts a pipeline error into a polite Success=false response
// and records the failed turn. query is the validated SQL when one was
// accepted before the failure, so "ran but failed" turns keep their
// statement in history.
func (s *AskService) fail(ctx context.Context, prep *prepared, question, query string, err error) *AskResponse {
	message := s.userMessage(prep, err)
	s.record(ctx, prep, question, query, nil, "", message)
	return &AskResponse{
		Success:      false,
		Question:     question,
		SQLQuery:     query,
		Error:        message,
		SessionToken: prep.session.Token,
	}
}

// userMessage maps a classified error to what the user sees.
func (s *AskService) userMessage(prep *prepared, err error) string {
	switch apperrors.Classify(err) {
	case apperrors.CategoryQuotaExceeded:
		return "Daily query limit exceeded. Please try again tomorrow."
	case apperrors.CategoryValidationRejected:
		return "I could not produce a safe read-only query for that question. Try rephrasing it."
	case apperrors.CategorySchemaNotFound:
		return s.schemaNotFoundMessage(prep, err)
	case apperrors.CategoryConnectionFailed:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return "Could not reach the database: " + appErr.Message + "."
		}
		return "Could not connect to the database."
	case apperrors.CategoryTimeout:
		return "The request took too long and was cancelled. Try a narrower question."
	}
	s.logger.Error("unclassified pipeline error", zap.String("error", logging.SanitizeError(err)))
	return "Something went wrong answering that question. Please try again."
}

// schemaNotFoundMessage names the missing object when the driver error
// reveals it, and lists what does exist so the user can reorient.
func (s *AskService) schemaNotFoundMessage(prep *prepared, err error) string {
	msg := "The question referred to data that does not exist in this database."
	if object := apperrors.ExtractMissingObject(err); object != "" {
		msg = fmt.Sprintf("There is no %q in this database.", object)
	}
	if prep.schema != nil && len(prep.schema.Tables) > 0 {
		msg += " Available tables: " + strings.Join(prep.schema.TableNames(), ", ") + "."
	}
	return msg
}

// record persists a turn, embedding the displayed rows as JSON.
func (s *AskService) record(ctx context.Context, prep *prepared, question, query string, displayed []map[string]any, answer, errorMessage string) {
	turn := &models.ConversationTurn{
		SessionID: prep.session.ID,
		UserID:    prep.session.UserID,
		Question:  question,
		Answer:    answer,
	}
	if query != "" {
		turn.SQLQuery = &query
	}
	if errorMessage != "" {
		turn.ErrorMessage = &errorMessage
	}
	if len(displayed) > 0 {
		if encoded, err := json.Marshal(displayed); err == nil {
			turn.ResultJSON = encoded
		}
	}
	s.sessions.RecordTurn(ctx, turn)
}

// recordingChunks forwards the answer stream while accumulating the
// full text, then records the turn (and usage, for data questions)
// once the stream completes cleanly.
func (s *AskService) recordingChunks(ctx context.Context, prep *prepared, question, query string, displayed []map[string]any, in <-chan llm.StreamChunk, countsAgainstQuota bool) <-chan llm.StreamChunk {
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		var answer strings.Builder
		var streamErr error
		for chunk := range in {
			if chunk.Err != nil {
				streamErr = chunk.Err
			}
			if chunk.Content != "" {
				answer.WriteString(chunk.Content)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Consumer abandoned the stream. Drain the producer so
				// its goroutine can finish and release the backend
				// stream.
				for range in {
				}
				return
			}
		}
		if streamErr != nil {
			s.record(ctx, prep, question, query, displayed, answer.String(), s.userMessage(prep, streamErr))
			return
		}
		if countsAgainstQuota {
			s.usage.RecordQuery(ctx, prep.session.UserID)
		}
		s.record(ctx, prep, question, query, displayed, answer.String(), "")
	}()
	return out
}

// failedStream wraps an already-failed response as a single-message
// stream so SSE consumers get the polite error through the same
// channel shape as a real answer.
func (s *AskService) failedStream(resp *AskResponse) *StreamingAnswer {
	out := make(chan llm.StreamChunk, 2)
	out <- llm.StreamChunk{Content: resp.Error}
	out <- llm.StreamChunk{Done: true}
	close(out)
	return &StreamingAnswer{
		Success:      false,
		Question:     resp.Question,
		SQLQuery:     resp.SQLQuery,
		Error:        resp.Error,
		SessionToken: resp.SessionToken,
		Chunks:       out,
	}
}

func (s *AskService) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.QueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

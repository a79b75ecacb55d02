// Package llm provides clients for OpenAI-compatible and Anthropic
// text-generation backends.
package llm

import (
	"context"
	"time"
)

// StreamChunk is one fragment of a streamed completion. The channel a
// stream is delivered on is finite and non-restartable: fragments
// arrive in order, empty fragments are filtered out, and the final
// chunk has Done set (with Err set too when the stream failed).
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// Client defines the operations the ask pipeline needs from a
// text-generation backend. Use this interface for dependency injection
// to enable mocking in tests.
type Client interface {
	// GenerateResponse performs one non-streaming completion with a
	// fixed system role and the prompt as user content.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// StreamResponse performs a streaming completion. The returned
	// channel is closed after the terminal Done chunk is delivered.
	// Consumers pace the stream by their read rate.
	StreamResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (<-chan StreamChunk, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Config holds configuration for creating a backend client.
type Config struct {
	Endpoint  string // base URL, e.g. "https://api.openai.com/v1"
	Model     string
	APIKey    string // optional for local endpoints
	MaxTokens int

	// RequestTimeout bounds each individual backend call. Zero means
	// no client-side timeout beyond the request context.
	RequestTimeout time.Duration
}

package llm

import (
	"context"
)

// MockClient is a configurable mock for testing pipeline behavior
// without a live backend. Set the function fields to control behavior.
type MockClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns "" and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// StreamChunks are replayed by StreamResponse. A terminal Done
	// chunk is appended automatically.
	StreamChunks []string

	// StreamErr, if set, terminates the replayed stream.
	StreamErr error

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification.
	GenerateResponseCalls int
	StreamResponseCalls   int
	Prompts               []string
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

// GenerateResponse implements Client.
func (m *MockClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// StreamResponse implements Client.
func (m *MockClient) StreamResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (<-chan StreamChunk, error) {
	m.StreamResponseCalls++
	m.Prompts = append(m.Prompts, prompt)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for _, c := range m.StreamChunks {
			if c == "" {
				continue
			}
			out <- StreamChunk{Content: c}
		}
		out <- StreamChunk{Done: true, Err: m.StreamErr}
	}()
	return out, nil
}

// GetModel implements Client.
func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements Client.
func (m *MockClient) GetEndpoint() string { return "http://mock-endpoint" }

// Ensure MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)

package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic backend.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	var opts []anthropic.ClientOption
	if cfg.RequestTimeout > 0 {
		opts = append(opts, anthropic.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse performs one non-streaming messages call.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	start := time.Now()
	temp := float32(temperature)

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	c.logger.Info("LLM request completed",
		zap.Duration("elapsed", time.Since(start)))

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// StreamResponse performs a streaming messages call. Text deltas are
// forwarded as they arrive; empty deltas are dropped.
func (c *AnthropicClient) StreamResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (<-chan StreamChunk, error) {
	temp := float32(temperature)
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: anthropic.MessagesRequest{
				Model:       anthropic.Model(c.model),
				System:      systemMessage,
				MaxTokens:   c.maxTokens,
				Temperature: &temp,
				Messages: []anthropic.Message{
					{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
						{Type: "text", Text: &prompt},
					}},
				},
			},
			OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
				if data.Delta.Text == nil || *data.Delta.Text == "" {
					return
				}
				select {
				case out <- StreamChunk{Content: *data.Delta.Text}:
				case <-ctx.Done():
				}
			},
		})
		// Guarded like the delta sends so an abandoned consumer cannot
		// strand this goroutine.
		var done StreamChunk
		if err != nil {
			done = StreamChunk{Done: true, Err: ClassifyError(err)}
		} else {
			done = StreamChunk{Done: true}
		}
		select {
		case out <- done:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string { return c.model }

// GetEndpoint returns the configured endpoint.
func (c *AnthropicClient) GetEndpoint() string { return c.endpoint }

// Ensure AnthropicClient implements Client at compile time.
var _ Client = (*AnthropicClient)(nil)

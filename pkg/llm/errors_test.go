package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{
			name:      "401 unauthorized",
			err:       errors.New("error, status code: 401, message: invalid api key"),
			wantType:  ErrorTypeAuth,
			retryable: false,
		},
		{
			name:      "429 rate limit",
			err:       errors.New("error, status code: 429, message: rate limit exceeded"),
			wantType:  ErrorTypeRateLimit,
			retryable: true,
		},
		{
			name:      "deadline exceeded",
			err:       fmt.Errorf("chat completion: %w", context.DeadlineExceeded),
			wantType:  ErrorTypeTimeout,
			retryable: true,
		},
		{
			name:      "client timeout text",
			err:       errors.New("Post \"https://api/v1/chat\": net/http: request canceled (Client.Timeout exceeded)"),
			wantType:  ErrorTypeTimeout,
			retryable: true,
		},
		{
			name:      "model not found",
			err:       errors.New("The model 'gpt-nope' does not exist"),
			wantType:  ErrorTypeModel,
			retryable: false,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:      "503 server error",
			err:       errors.New("error, status code: 503, message: overloaded"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:      "unknown",
			err:       errors.New("something odd"),
			wantType:  ErrorTypeUnknown,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := &Error{Type: ErrorTypeAuth, Message: "authentication failed"}
	wrapped := fmt.Errorf("outer: %w", orig)
	assert.Same(t, orig, ClassifyError(wrapped))
	assert.Nil(t, ClassifyError(nil))
}

func TestIsTimeout(t *testing.T) {
	timeoutErr := fmt.Errorf("ask: %w", ClassifyError(context.DeadlineExceeded))
	assert.True(t, IsTimeout(timeoutErr))
	assert.False(t, IsTimeout(errors.New("plain")))
}

func TestMockClient_Stream(t *testing.T) {
	mock := NewMockClient()
	mock.StreamChunks = []string{"The ", "", "answer ", "is 42."}

	ch, err := mock.StreamResponse(context.Background(), "q", "sys", 0.4)
	require.NoError(t, err)

	var got string
	var doneSeen bool
	for chunk := range ch {
		if chunk.Done {
			doneSeen = true
			assert.NoError(t, chunk.Err)
			continue
		}
		// Empty fragments are filtered before delivery.
		assert.NotEmpty(t, chunk.Content)
		got += chunk.Content
	}
	assert.True(t, doneSeen)
	assert.Equal(t, "The answer is 42.", got)
}

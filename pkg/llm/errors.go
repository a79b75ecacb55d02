package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a backend failure.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a structured backend error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure is transient. Rate limits,
// timeouts and 5xx are worth retrying; auth and model errors are not.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// IsTimeout reports whether err classifies as a backend timeout. The
// pipeline surfaces these as a distinct user-facing category.
func IsTimeout(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeTimeout
	}
	return false
}

// ClassifyError categorizes a backend error via its HTTP status class
// and message text, walking wrapped chains. 4xx means caller/auth/
// rate-limit, 5xx means backend; timeouts get their own type so the
// pipeline can surface them distinctly.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	newErr := func(t ErrorType, msg string, retryable bool) *Error {
		return &Error{Type: t, Message: msg, Retryable: retryable, StatusCode: statusCode, Cause: err}
	}

	switch {
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled"):
		return newErr(ErrorTypeTimeout, "request timeout", true)

	case statusCode == 401 || statusCode == 403 ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		return newErr(ErrorTypeAuth, "authentication failed", false)

	case statusCode == 429 || strings.Contains(lower, "rate limit"):
		return newErr(ErrorTypeRateLimit, "rate limited", true)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return newErr(ErrorTypeModel, "model not found", false)

	case statusCode == 404:
		return newErr(ErrorTypeEndpoint, "endpoint not found", false)

	case strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host"):
		return newErr(ErrorTypeEndpoint, "connection failed", true)

	case statusCode >= 500:
		return newErr(ErrorTypeEndpoint, "server error", true)
	}

	return newErr(ErrorTypeUnknown, "llm error", false)
}

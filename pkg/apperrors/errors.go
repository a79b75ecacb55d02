// Package apperrors defines the engine's error taxonomy and the
// classification helpers the ask pipeline uses to turn low-level
// failures into user-facing categories.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrQuotaExceeded    = errors.New("daily query limit exceeded")
	ErrRetriesExhausted = errors.New("sql generation retries exhausted")
)

// Category classifies a pipeline failure for response shaping.
type Category string

const (
	CategoryValidationRejected Category = "validation_rejected"
	CategorySchemaNotFound     Category = "schema_not_found"
	CategoryConnectionFailed   Category = "connection_failed"
	CategoryQuotaExceeded      Category = "quota_exceeded"
	CategoryTimeout            Category = "timeout"
	CategoryUnclassified       Category = "unclassified"
)

// Error is a classified error carrying the category and a message safe
// to show to the end user. The original cause is preserved for
// diagnostics via Unwrap.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// Classify determines the category of err, walking the wrapped chain.
// Timeout detection inspects both error types and message text because
// drivers and HTTP clients disagree on how deadlines surface.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnclassified
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Category
	}

	if errors.Is(err, ErrQuotaExceeded) {
		return CategoryQuotaExceeded
	}
	if errors.Is(err, ErrRetriesExhausted) {
		return CategoryValidationRejected
	}
	if IsTimeout(err) {
		return CategoryTimeout
	}
	if IsSchemaNotFound(err) {
		return CategorySchemaNotFound
	}

	return CategoryUnclassified
}

// IsTimeout reports whether any error in the chain indicates an
// exceeded deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded")
}

// schemaNotFoundPhrases are dialect-agnostic fragments of the errors
// databases return when a referenced table or column does not exist.
var schemaNotFoundPhrases = []string{
	"unknown column",
	"unknown table",
	"no such table",
	"no such column",
	"doesn't exist",
	"does not exist",
	"invalid object name",
	"invalid column name",
	"not found in",
}

// IsSchemaNotFound reports whether err looks like a missing table or
// column error from a target database.
func IsSchemaNotFound(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, phrase := range schemaNotFoundPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// missingObjectPatterns extract the offending identifier from common
// missing-table/column error shapes.
var missingObjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)unknown (?:column|table) '([^']+)'`),
	regexp.MustCompile(`(?i)(?:relation|table|column) "([^"]+)" does not exist`),
	regexp.MustCompile(`(?i)no such (?:table|column): ?(\S+)`),
	regexp.MustCompile(`(?i)invalid (?:object|column) name '([^']+)'`),
}

// ExtractMissingObject pulls the missing table/column identifier out of
// a schema-not-found error message. Returns "" when no pattern matches.
func ExtractMissingObject(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, re := range missingObjectPatterns {
		if m := re.FindStringSubmatch(msg); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

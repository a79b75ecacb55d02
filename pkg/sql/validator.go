// Package sql provides the security gate that every candidate query
// must pass before it reaches a live target-database connection.
package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// RejectReason is the typed reason a candidate query was refused.
type RejectReason string

const (
	ReasonNotSelect        RejectReason = "not-select"
	ReasonMissingFrom      RejectReason = "missing-from"
	ReasonForbiddenKeyword RejectReason = "forbidden-keyword"
	ReasonUnbalanced       RejectReason = "unbalanced-syntax"
)

// Rejection describes why a candidate query failed validation. It is
// never a raw passthrough of the input.
type Rejection struct {
	Reason  RejectReason
	Keyword string // set when Reason is ReasonForbiddenKeyword
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return r.Message()
}

// Message renders a human-readable rejection suitable for feeding back
// into the generation prompt.
func (r *Rejection) Message() string {
	switch r.Reason {
	case ReasonNotSelect:
		return "query is not a SELECT statement"
	case ReasonMissingFrom:
		return "query has no FROM clause"
	case ReasonForbiddenKeyword:
		return fmt.Sprintf("query contains forbidden keyword %s", r.Keyword)
	case ReasonUnbalanced:
		return "query has unbalanced quotes or parentheses"
	}
	return string(r.Reason)
}

// forbiddenKeywords are rejected on any whole-word occurrence,
// case-insensitive, regardless of surrounding valid SELECT syntax.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE",
	"CREATE", "REPLACE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
	"CALL", "LOAD", "OUTFILE", "INFILE", "DUMPFILE", "MERGE",
}

var (
	forbiddenPatterns = buildForbiddenPatterns()
	fromPattern       = regexp.MustCompile(`(?i)\bFROM\b`)
)

func buildForbiddenPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, kw := range forbiddenKeywords {
		patterns[kw] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}

// Validate is the security gate: a pure predicate over the candidate
// query string. It returns nil when the query is accepted and a typed
// Rejection otherwise.
//
// This is a blocklist plus structural checks, not a SQL parse.
// Acceptance is necessary but not sufficient for safety; callers
// needing stronger guarantees should add an actual parser that proves
// the statement is a single read-only SELECT.
func Validate(query string) *Rejection {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &Rejection{Reason: ReasonNotSelect}
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return &Rejection{Reason: ReasonNotSelect}
	}

	if !fromPattern.MatchString(trimmed) {
		return &Rejection{Reason: ReasonMissingFrom}
	}

	for _, kw := range forbiddenKeywords {
		if forbiddenPatterns[kw].MatchString(trimmed) {
			return &Rejection{Reason: ReasonForbiddenKeyword, Keyword: kw}
		}
	}

	if rej := checkBalance(trimmed); rej != nil {
		return rej
	}

	return nil
}

// checkBalance rejects structurally unbalanced quoting: odd counts of
// single or double quotes, or mismatched parentheses.
func checkBalance(query string) *Rejection {
	singles := strings.Count(query, "'")
	doubles := strings.Count(query, `"`)
	if singles%2 != 0 || doubles%2 != 0 {
		return &Rejection{Reason: ReasonUnbalanced}
	}

	depth := 0
	for _, ch := range query {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return &Rejection{Reason: ReasonUnbalanced}
			}
		}
	}
	if depth != 0 {
		return &Rejection{Reason: ReasonUnbalanced}
	}
	return nil
}

package sql

import (
	"regexp"
	"strings"
)

var (
	fencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	labelPattern = regexp.MustCompile(`(?i)^\s*SQL(?:Query)?\s*:\s*`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// CleanGenerated normalizes raw model output into a bare SQL string:
// markdown fences, a leading "SQL:"/"SQLQuery:" label, surrounding
// quotes and backticks are stripped, and whitespace is collapsed.
// Models decorate their output inconsistently even when told not to.
func CleanGenerated(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if m := fencePattern.FindStringSubmatch(cleaned); len(m) == 2 {
		cleaned = m[1]
	}

	cleaned = labelPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	// Surrounding quote pairs the model sometimes wraps the query in.
	for _, q := range []string{`"`, "'", "`"} {
		if len(cleaned) >= 2 && strings.HasPrefix(cleaned, q) && strings.HasSuffix(cleaned, q) {
			cleaned = cleaned[1 : len(cleaned)-1]
		}
	}

	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

package services

import (
	"regexp"
	"strings"
)

// smallTalkPatterns match conversational input that is not a question
// about data. Matching is deliberately conservative: a false negative
// just means the question goes through the normal SQL path, while a
// false positive would swallow a real data question.
var smallTalkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hello|hey|yo|howdy|good (morning|afternoon|evening))\b[!.,\s]*$`),
	regexp.MustCompile(`(?i)^(thanks|thank you|thx|cheers)\b[!.,\s]*$`),
	regexp.MustCompile(`(?i)^(bye|goodbye|see you|later)\b[!.,\s]*$`),
	regexp.MustCompile(`(?i)^how are you\b`),
	regexp.MustCompile(`(?i)^(who|what) are you\b`),
	regexp.MustCompile(`(?i)^what can you do\b`),
	regexp.MustCompile(`(?i)^(help|test|testing)[!.?\s]*$`),
}

// IsSmallTalk reports whether question is conversational input that
// should bypass schema extraction and SQL generation entirely.
func IsSmallTalk(question string) bool {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return true
	}
	for _, p := range smallTalkPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

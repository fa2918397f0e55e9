// ABOUTME: End-of-conversation heuristic over user message text
// ABOUTME: Word-boundary phrase groups: gratitude, farewell, closure, decline

package conversation

import (
	"regexp"
	"strings"
)

// endPatterns match phrases that typically close a conversation. Input
// is lowercased before matching, so the patterns stay case-sensitive.
var endPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(thanks|thank you|thankyou|thx)\b`),
	regexp.MustCompile(`\b(bye|goodbye|see you|see ya|take care)\b`),
	regexp.MustCompile(`\b(that'?s all|thats all|done|resolved|got it)\b`),
	regexp.MustCompile(`\b(no thanks|no thank you|i'?m good|im good)\b`),
}

// isConversationEnd reports whether text looks like the user is wrapping
// up the conversation.
func isConversationEnd(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, pattern := range endPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

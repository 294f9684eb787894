package memory_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"strings"
	"unicode/utf8"
)

// greetingMaxRunes bounds the greeting short-circuit. Longer messages that
// merely open with a greeting still get full analysis.
const greetingMaxRunes = 20

// summaryMaxRunes caps the rule-based summary length.
const summaryMaxRunes = 100

// Classifier is the rule-based importance tier. It holds no mutable state;
// calls may run concurrently.
type Classifier struct{}

// NewClassifier creates a rule-based classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Analyze grades content by keyword matching. It never assigns more than
// medium importance; higher grades require LLM refinement.
func (c *Classifier) Analyze(content string) Analysis {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Analysis{Importance: ImportanceLow}
	}

	if utf8.RuneCountInString(trimmed) < greetingMaxRunes && containsGreeting(trimmed) {
		return Analysis{Importance: ImportanceLow}
	}

	// keyword matching is case-insensitive; the summary keeps the original
	lowered := strings.ToLower(trimmed)
	for _, category := range keywordTable {
		matched := matchKeywords(lowered, category)
		if len(matched) == 0 {
			continue
		}
		return Analysis{
			IsImportant: true,
			Importance:  ImportanceMedium,
			EventType:   category.eventType,
			Summary:     truncateRunes(trimmed, summaryMaxRunes),
			Keywords:    matched,
		}
	}

	return Analysis{Importance: ImportanceLow}
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Package memory_service decides which conversation content is worth
// remembering long-term and persists the promoted memories per user and bot.
package memory_service //nolint:revive // var-naming: using underscores for domain clarity

import "time"

// Importance grades how much a piece of content matters for long-term recall.
type Importance string

const (
	// ImportanceLow is the default for unimportant content.
	ImportanceLow Importance = "low"
	// ImportanceMedium is assigned by the rule-based classifier.
	ImportanceMedium Importance = "medium"
	// ImportanceHigh is only assigned by LLM refinement.
	ImportanceHigh Importance = "high"
	// ImportanceCritical is only assigned by LLM refinement.
	ImportanceCritical Importance = "critical"
)

// importanceRank orders the known levels. Rank zero is reserved for unknown
// values so they never pass any threshold.
var importanceRank = map[Importance]int{
	ImportanceLow:      1,
	ImportanceMedium:   2,
	ImportanceHigh:     3,
	ImportanceCritical: 4,
}

// Passes reports whether the importance meets or exceeds the threshold.
// Unknown values rank below low.
func (i Importance) Passes(threshold Importance) bool {
	return importanceRank[i] >= importanceRank[threshold]
}

// Event types recognised by the classifier, in matching priority order.
const (
	EventBirthday     = "birthday"
	EventPreference   = "preference"
	EventGoal         = "goal"
	EventLifeEvent    = "life_event"
	EventEmotion      = "emotion"
	EventRelationship = "relationship"
)

// Analysis is the classifier's verdict on one piece of content.
type Analysis struct {
	IsImportant bool       `json:"is_important"`
	Importance  Importance `json:"importance"`
	EventType   string     `json:"event_type,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// MemoryRecord is the persisted form of one promoted memory.
type MemoryRecord struct {
	UserID    string    `json:"user_id"`
	BotID     string    `json:"bot_id"`
	Content   string    `json:"content"`
	Analysis  Analysis  `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}

// Package history_service provides the bounded in-memory store for recent
// conversation turns, keyed per (user, bot) session.
package history_service //nolint:revive // var-naming: using underscores for domain clarity

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a conversation, attributed to a role. Turns are
// immutable once appended.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionKey composes the store key for a (user, bot) pair. Ids must not
// contain the underscore separator; the composition is not collision-proof
// otherwise.
func SessionKey(userID, botID string) string {
	return userID + "_" + botID
}

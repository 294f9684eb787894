// Package history_filter reduces raw conversation history to a compact
// sequence suitable for LLM context injection, with a disk-backed archive for
// the removed content.
package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"

	"github.com/solinlabs/persona_bot_platform/internal/history_service"
)

// FilterReason classifies why a turn was removed.
type FilterReason string

const (
	// ReasonEmpty marks turns with empty or whitespace-only content.
	ReasonEmpty FilterReason = "empty"
	// ReasonURLDominated marks turns whose content is mostly shared links.
	ReasonURLDominated FilterReason = "url_dominated"
	// ReasonTrivial marks short greeting/acknowledgement filler.
	ReasonTrivial FilterReason = "trivial"
)

// FilteredContent records a removed turn with enough information to
// reconstruct the original.
type FilteredContent struct {
	OriginalContent string       `json:"original_content"`
	FilterReason    FilterReason `json:"filter_reason"`
	ExtractedURLs   []string     `json:"extracted_urls"`
	Timestamp       string       `json:"timestamp"`
	Placeholder     string       `json:"placeholder,omitempty"`
}

// Result is the outcome of one FilterHistory invocation.
type Result struct {
	FilteredHistory []history_service.Turn
	FilteredOut     []FilteredContent
	// StoragePath is the archive location of the removed content. Empty
	// when disk storage is disabled, nothing was removed, or the write
	// failed.
	StoragePath string
}

// Record is the archived form of one filter invocation's removals.
type Record struct {
	Version       int               `json:"version"`
	ChatID        string            `json:"chat_id"`
	UserID        string            `json:"user_id"`
	Timestamp     time.Time         `json:"timestamp"`
	FilteredCount int               `json:"filtered_count"`
	Items         []FilteredContent `json:"items"`
}

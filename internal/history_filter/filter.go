package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// trivialPhrases is the closed dictionary of greeting, acknowledgement and
// farewell filler that is safe to drop from long context windows. Matching is
// exact after normalisation, and only applies below TrivialMaxRunes.
var trivialPhrases = map[string]struct{}{
	"你好": {}, "您好": {}, "hello": {}, "hi": {}, "hey": {},
	"再见": {}, "拜拜": {}, "bye": {}, "goodbye": {},
	"谢谢": {}, "谢谢你": {}, "谢谢您": {}, "感谢": {}, "thanks": {}, "thank you": {},
	"好的": {}, "好": {}, "嗯": {}, "嗯嗯": {}, "哦": {}, "哦哦": {},
	"收到": {}, "明白": {}, "知道了": {}, "了解": {}, "行": {}, "可以": {}, "没问题": {},
	"ok": {}, "okay": {}, "got it": {},
	"早上好": {}, "晚上好": {}, "早安": {}, "晚安": {},
	"good morning": {}, "good night": {},
}

// Options configures the filter.
type Options struct {
	EnableURLFilter     bool
	EnableTrivialFilter bool
	EnableDiskStorage   bool
	// MinContentLength is the minimum prose length, in runes, a turn must
	// keep after URL stripping to escape URL-dominance.
	MinContentLength int
	// URLRatioThreshold is the fraction of URL characters at which a turn
	// counts as URL-dominated.
	URLRatioThreshold float64
	// TrivialMaxRunes is the length below which the trivial dictionary
	// applies.
	TrivialMaxRunes int
}

// DefaultOptions returns the filter defaults.
func DefaultOptions() Options {
	return Options{
		EnableURLFilter:     true,
		EnableTrivialFilter: true,
		EnableDiskStorage:   true,
		MinContentLength:    5,
		URLRatioThreshold:   0.6,
		TrivialMaxRunes:     20,
	}
}

// Filter classifies conversation turns and compacts history. It holds no
// mutable state; calls may run concurrently.
type Filter struct {
	opts    Options
	archive *Archive
	log     logger.Logger
}

// New creates a Filter. The archive may be nil when disk storage is disabled.
func New(opts Options, archive *Archive, log logger.Logger) *Filter {
	if log == nil {
		panic("logger cannot be nil")
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultOptions().MinContentLength
	}
	if opts.URLRatioThreshold <= 0 {
		opts.URLRatioThreshold = DefaultOptions().URLRatioThreshold
	}
	if opts.TrivialMaxRunes <= 0 {
		opts.TrivialMaxRunes = DefaultOptions().TrivialMaxRunes
	}
	return &Filter{opts: opts, archive: archive, log: log}
}

// DiskStorageEnabled reports whether removals are archived to disk.
func (f *Filter) DiskStorageEnabled() bool {
	return f.opts.EnableDiskStorage && f.archive != nil
}

// FilterHistory classifies each turn independently and returns the compacted
// history plus the removed content. When disk storage is enabled and
// something was removed, the removals are archived under (chatID, userID);
// an archive failure is logged and degrades to "not archived".
func (f *Filter) FilterHistory(ctx context.Context, history []history_service.Turn, chatID, userID string) Result {
	filtered := make([]history_service.Turn, 0, len(history))
	var removed []FilteredContent

	for _, turn := range history {
		reason, ok := f.classify(turn.Content)
		if !ok {
			filtered = append(filtered, turn)
			continue
		}
		removed = append(removed, f.newFilteredContent(turn.Content, reason))
	}

	result := Result{FilteredHistory: filtered, FilteredOut: removed}

	if f.opts.EnableDiskStorage && f.archive != nil && len(removed) > 0 {
		path, err := f.archive.Store(ctx, Record{
			ChatID: chatID,
			UserID: userID,
			Items:  removed,
		})
		if err != nil {
			f.log.Warn("Failed to archive filtered content",
				logger.StringField("chat_id", chatID),
				logger.ErrorField(err))
		} else {
			result.StoragePath = path
		}
	}

	f.log.Info("Filtered conversation history",
		logger.IntField("total", len(history)),
		logger.IntField("removed", len(removed)),
		logger.IntField("remaining", len(filtered)))

	return result
}

// classify decides whether a turn should be removed and why. Turns with a
// missing content field count as empty.
func (f *Filter) classify(content string) (FilterReason, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ReasonEmpty, true
	}
	if f.opts.EnableURLFilter && f.IsURLDominated(trimmed) {
		return ReasonURLDominated, true
	}
	if f.opts.EnableTrivialFilter && f.isTrivial(trimmed) {
		return ReasonTrivial, true
	}
	return "", false
}

// isTrivial reports whether content is dictionary filler short enough to
// drop. Longer messages that merely contain a greeting are never trivial.
func (f *Filter) isTrivial(trimmed string) bool {
	if utf8.RuneCountInString(trimmed) >= f.opts.TrivialMaxRunes {
		return false
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, "。！？!?.,~ "))
	_, ok := trivialPhrases[normalized]
	return ok
}

func (f *Filter) newFilteredContent(content string, reason FilterReason) FilteredContent {
	fc := FilteredContent{
		OriginalContent: content,
		FilterReason:    reason,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	if reason == ReasonURLDominated {
		fc.ExtractedURLs = ExtractURLs(content)
		fc.Placeholder = fmt.Sprintf("[user shared %d link(s)]", len(fc.ExtractedURLs))
	}
	return fc
}

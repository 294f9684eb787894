package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.DebugLevel, Output: io.Discard})
}

func newMemoryFilter(opts Options) *Filter {
	opts.EnableDiskStorage = false
	return New(opts, nil, newTestLogger())
}

func userTurn(content string) history_service.Turn {
	return history_service.Turn{Role: history_service.RoleUser, Content: content}
}

func assistantTurn(content string) history_service.Turn {
	return history_service.Turn{Role: history_service.RoleAssistant, Content: content}
}

func TestFilterEmptyTurns(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	result := f.FilterHistory(context.Background(), []history_service.Turn{
		userTurn(""),
		userTurn("   \t\n"),
		userTurn("我昨天去了一趟医院，医生说恢复得不错"),
	}, "", "")

	require.Len(t, result.FilteredOut, 2)
	assert.Equal(t, ReasonEmpty, result.FilteredOut[0].FilterReason)
	assert.Equal(t, ReasonEmpty, result.FilteredOut[1].FilterReason)
	require.Len(t, result.FilteredHistory, 1)
}

func TestFilterURLDominatedTurn(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	result := f.FilterHistory(context.Background(), []history_service.Turn{
		userTurn("https://www.example.com/very/long/path"),
	}, "", "")

	require.Len(t, result.FilteredOut, 1)
	fc := result.FilteredOut[0]
	assert.Equal(t, ReasonURLDominated, fc.FilterReason)
	assert.Equal(t, []string{"https://www.example.com/very/long/path"}, fc.ExtractedURLs)
	assert.Equal(t, "[user shared 1 link(s)]", fc.Placeholder)
	assert.Empty(t, result.FilteredHistory)
}

func TestURLEmbeddedInProseIsKept(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())
	content := "我看到一篇很有意思的文章，讲的是高原徒步装备怎么挑选，" +
		"链接在这里 https://t.cn/a1 ，你可以帮我总结一下要点吗？我下个月要去西藏。"

	result := f.FilterHistory(context.Background(), []history_service.Turn{userTurn(content)}, "", "")

	assert.Empty(t, result.FilteredOut)
	require.Len(t, result.FilteredHistory, 1)
	assert.Equal(t, content, result.FilteredHistory[0].Content, "retained turns pass through unchanged")
}

func TestIsURLDominated(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"bare URL", "https://www.example.com/very/long/path", true},
		{"bare www host", "www.example.com/abc", true},
		{"url with trailing filler", "看看这个 https://example.com/a/b/c/d/e/f", true},
		{"short url in long prose", "这篇关于养猫的文章写得特别好，推荐你看看 https://x.io 我觉得里面的喂养建议很实用", false},
		{"no urls", "今天走了两万步，腿都酸了", false},
		{"empty", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.IsURLDominated(tt.content))
		})
	}
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("first https://a.example/x then www.b.example/y and again https://a.example/x")
	assert.Equal(t, []string{"https://a.example/x", "www.b.example/y"}, urls)

	assert.Nil(t, ExtractURLs("no links here"))
}

func TestCleanURLsFromContent(t *testing.T) {
	cleaned := CleanURLsFromContent("看这个 https://a.example/x 还有 www.b.example/y 哦")
	assert.Equal(t, "看这个 [link] 还有 [link] 哦", cleaned)
}

func TestTrivialFilteringBoundary(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	// short greeting is dropped
	result := f.FilterHistory(context.Background(), []history_service.Turn{userTurn("你好")}, "", "")
	require.Len(t, result.FilteredOut, 1)
	assert.Equal(t, ReasonTrivial, result.FilteredOut[0].FilterReason)

	// long message containing a greeting substring is retained
	long := "你好，我的生日是下个月15号，请帮我记住"
	result = f.FilterHistory(context.Background(), []history_service.Turn{userTurn(long)}, "", "")
	assert.Empty(t, result.FilteredOut)
	require.Len(t, result.FilteredHistory, 1)
}

func TestTrivialPunctuationVariants(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	for _, content := range []string{"好的。", "谢谢！", "OK", "Thanks!", "知道了"} {
		result := f.FilterHistory(context.Background(), []history_service.Turn{userTurn(content)}, "", "")
		require.Len(t, result.FilteredOut, 1, "content %q", content)
		assert.Equal(t, ReasonTrivial, result.FilteredOut[0].FilterReason)
	}
}

func TestFiltersCanBeDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableURLFilter = false
	opts.EnableTrivialFilter = false
	f := newMemoryFilter(opts)

	result := f.FilterHistory(context.Background(), []history_service.Turn{
		userTurn("你好"),
		userTurn("https://www.example.com/very/long/path"),
	}, "", "")

	assert.Empty(t, result.FilteredOut)
	assert.Len(t, result.FilteredHistory, 2)
}

func TestEndToEndScenario(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	history := []history_service.Turn{
		userTurn("好的"),
		assistantTurn("还有什么需要帮助的吗？"),
		userTurn("谢谢"),
		assistantTurn("不客气！"),
	}

	result := f.FilterHistory(context.Background(), history, "chat1", "user1")

	require.Len(t, result.FilteredOut, 2)
	require.Len(t, result.FilteredHistory, 2)
	for _, turn := range result.FilteredHistory {
		assert.Equal(t, history_service.RoleAssistant, turn.Role)
	}
}

func TestRefilterIsIdempotent(t *testing.T) {
	f := newMemoryFilter(DefaultOptions())

	history := []history_service.Turn{
		userTurn("好的"),
		userTurn("https://www.example.com/share/link/path"),
		userTurn("我最近压力很大，想找人聊聊工作上的事情"),
		assistantTurn("我在听，愿意多说说吗？"),
	}

	first := f.FilterHistory(context.Background(), history, "", "")
	second := f.FilterHistory(context.Background(), first.FilteredHistory, "", "")

	assert.Empty(t, second.FilteredOut)
	assert.Equal(t, first.FilteredHistory, second.FilteredHistory)
}

func TestArchiveRoundTripThroughFilter(t *testing.T) {
	ctx := context.Background()
	provider := storage_manager.NewLocalFileProvider(t.TempDir())
	archive := NewArchive(provider, newTestLogger())

	opts := DefaultOptions()
	f := New(opts, archive, newTestLogger())

	result := f.FilterHistory(ctx, []history_service.Turn{
		userTurn("好的"),
		userTurn("谢谢"),
	}, "chat42", "user7")

	require.Len(t, result.FilteredOut, 2)
	require.NotEmpty(t, result.StoragePath)

	records, err := archive.Retrieve(ctx, "chat42", "user7")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Items, 2)
	assert.Equal(t, 2, records[0].FilteredCount)
}

func TestArchiveFailureDoesNotAbortFiltering(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(failingProvider{}, newTestLogger())
	f := New(DefaultOptions(), archive, newTestLogger())

	result := f.FilterHistory(ctx, []history_service.Turn{userTurn("好的")}, "c", "u")

	require.Len(t, result.FilteredOut, 1)
	assert.Empty(t, result.StoragePath)
}

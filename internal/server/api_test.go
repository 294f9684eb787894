package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solinlabs/persona_bot_platform/internal/history_filter"
	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/internal/memory_service"
	"github.com/solinlabs/persona_bot_platform/internal/orchestrator"
	"github.com/solinlabs/persona_bot_platform/internal/persona"
	"github.com/solinlabs/persona_bot_platform/internal/reminder_service"
	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
	"github.com/solinlabs/persona_bot_platform/pkg/metrics"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) GenerateResponse(_ context.Context, messages []llm.Message, _ string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	return "echo: " + messages[len(messages)-1].Content, nil
}

type failingLLMProvider struct{}

func (failingLLMProvider) Name() string { return "failing" }

func (failingLLMProvider) GenerateResponse(context.Context, []llm.Message, string) (string, error) {
	return "", fmt.Errorf("backend unavailable")
}

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Format: "json", Output: io.Discard})
}

func writeTestPersona(t *testing.T, botsDir, botID string) {
	t.Helper()
	dir := filepath.Join(botsDir, botID)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	config := `name: 小助手
description: 测试用的助手
language: zh
ai:
  provider: anthropic
  model: claude-sonnet-4-5-20250929
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))
}

func newTestAPI(t *testing.T, provider llm.Provider) *API {
	t.Helper()
	log := newTestLogger()

	botsDir := t.TempDir()
	writeTestPersona(t, botsDir, "companion")

	fileProvider := storage_manager.NewLocalFileProvider(t.TempDir())
	archive := history_filter.NewArchive(fileProvider, log)
	filter := history_filter.New(history_filter.DefaultOptions(), archive, log)

	memory := memory_service.New(memory_service.Config{
		FileProvider: fileProvider,
		Logger:       log,
	})
	reminders := reminder_service.New(reminder_service.Config{
		FileProvider: fileProvider,
		Logger:       log,
	})

	orch, err := orchestrator.New(orchestrator.Config{
		Store:           history_service.NewStore(history_service.Config{MaxMessages: 50, Logger: log}),
		Filter:          filter,
		Personas:        persona.NewLoader(botsDir, log),
		Providers:       map[string]llm.Provider{"anthropic": provider},
		DefaultProvider: "anthropic",
		Memory:          memory,
		Reminders:       reminders,
		Metrics:         metrics.NewMetrics(log),
		Logger:          log,
	})
	require.NoError(t, err)

	return NewAPI(APIConfig{
		Orchestrator:   orch,
		Filter:         filter,
		Archive:        archive,
		Metrics:        metrics.NewMetrics(log),
		CORSOrigins:    []string{"*"},
		MaxRequestSize: 1 << 20,
		Logger:         log,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	rec := doJSON(t, api.Router(), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestChatRoundTrip(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/chat/companion", chatRequest{
		UserID:  "user1",
		Message: "我的生日是下个月15号，请一定记住啊",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: 我的生日是下个月15号，请一定记住啊", resp.Reply)
	assert.False(t, resp.ReminderCreated)
	assert.NotNil(t, resp.Analysis)

	// both turns should now be in the session history
	rec = doJSON(t, router, http.MethodGet, "/v1/sessions/companion/user1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var histResp struct {
		History []history_service.Turn `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &histResp))
	require.Len(t, histResp.History, 2)
	assert.Equal(t, history_service.RoleUser, histResp.History[0].Role)
	assert.Equal(t, history_service.RoleAssistant, histResp.History[1].Role)
}

func TestChatValidation(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	router := api.Router()

	tests := []struct {
		name string
		body chatRequest
	}{
		{name: "missing user id", body: chatRequest{Message: "hi"}},
		{name: "missing message", body: chatRequest{UserID: "user1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/v1/chat/companion", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatUnknownBot(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	rec := doJSON(t, api.Router(), http.MethodPost, "/v1/chat/nobody", chatRequest{
		UserID:  "user1",
		Message: "hello",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatGenerationFailure(t *testing.T) {
	api := newTestAPI(t, failingLLMProvider{})
	rec := doJSON(t, api.Router(), http.MethodPost, "/v1/chat/companion", chatRequest{
		UserID:  "user1",
		Message: "hello",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to generate reply")
}

func TestChatReminderInterception(t *testing.T) {
	api := newTestAPI(t, failingLLMProvider{})
	router := api.Router()

	// reminder requests never reach the model, so even the failing
	// provider produces a confirmation
	rec := doJSON(t, router, http.MethodPost, "/v1/chat/companion", chatRequest{
		UserID:  "user1",
		Message: "提醒我30分钟后拿快递",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ReminderCreated)
	assert.Contains(t, resp.Reply, "30分钟")

	rec = doJSON(t, router, http.MethodGet, "/v1/reminders/user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Reminders []reminder_service.Reminder `json:"reminders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Reminders, 1)
	assert.Equal(t, "拿快递", listResp.Reminders[0].Text)
}

func TestClearHistory(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/chat/companion", chatRequest{
		UserID:  "user1",
		Message: "今天天气怎么样",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/v1/sessions/companion/user1/history", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/sessions/companion/user1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var histResp struct {
		History []history_service.Turn `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &histResp))
	assert.Empty(t, histResp.History)
}

func TestHistoryLimitValidation(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	rec := doJSON(t, api.Router(), http.MethodGet, "/v1/sessions/companion/user1/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPersonas(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	rec := doJSON(t, api.Router(), http.MethodGet, "/v1/personas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Personas []string `json:"personas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"companion"}, resp.Personas)
}

func TestFilterEndpoint(t *testing.T) {
	api := newTestAPI(t, echoProvider{})

	rec := doJSON(t, api.Router(), http.MethodPost, "/v1/filter", filterRequest{
		ChatID: "chat1",
		UserID: "user1",
		History: []history_service.Turn{
			{Role: history_service.RoleUser, Content: "最近工作压力好大，总是睡不好"},
			{Role: history_service.RoleAssistant, Content: "好的"},
			{Role: history_service.RoleUser, Content: "https://example.com/a/b/c"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp filterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.FilteredHistory, 1)
	assert.Len(t, resp.FilteredOut, 2)
	assert.NotEmpty(t, resp.StoragePath)
}

func TestMemoryAnalyzeEndpoint(t *testing.T) {
	api := newTestAPI(t, echoProvider{})

	rec := doJSON(t, api.Router(), http.MethodPost, "/v1/memory/analyze", analyzeRequest{
		Content: "我打算明年搬去北京工作",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis memory_service.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.True(t, analysis.IsImportant)
}

func TestReminderParseEndpoint(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/reminders/parse", reminderParseRequest{
		Message: "2小时后提醒我开会",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reminderParseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsReminder)
	assert.Equal(t, 120, resp.Minutes)
	assert.Equal(t, "开会", resp.Content)

	rec = doJSON(t, router, http.MethodPost, "/v1/reminders/parse", reminderParseRequest{
		Message: "今天天气真不错",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsReminder)
}

func TestRequestSizeLimit(t *testing.T) {
	api := newTestAPI(t, echoProvider{})
	api.maxRequestSize = 16

	rec := doJSON(t, api.Router(), http.MethodPost, "/v1/chat/companion", chatRequest{
		UserID:  "user1",
		Message: "this message body is far longer than sixteen bytes",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

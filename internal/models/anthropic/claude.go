// Package anthropic adapts the Anthropic Claude API to the llm.Provider
// interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

const defaultMaxTokens = 4000

// ClaudeModel implements llm.Provider for Anthropic Claude models.
type ClaudeModel struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
	log       logger.Logger
}

// NewClaudeModel creates a new Claude provider instance.
func NewClaudeModel(apiKey, modelName string, log logger.Logger, opts ...option.RequestOption) (*ClaudeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &ClaudeModel{
		client:    client,
		modelName: modelName,
		maxTokens: defaultMaxTokens,
		log:       log.WithFields(logger.StringField("component", "claude_model"), logger.StringField("model", modelName)),
	}, nil
}

// Name returns the model identifier.
func (c *ClaudeModel) Name() string {
	return c.modelName
}

// GenerateResponse implements llm.Provider.
func (c *ClaudeModel) GenerateResponse(ctx context.Context, messages []llm.Message, systemPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: c.maxTokens,
		Messages:  transformMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	c.log.Debug("Sending request to anthropic", logger.IntField("messages_count", len(messages)))

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// transformMessages converts provider-neutral messages to Anthropic params.
// Unknown roles are treated as user turns.
func transformMessages(messages []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

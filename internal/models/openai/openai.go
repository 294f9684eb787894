// Package openai adapts the OpenAI chat completion API to the llm.Provider
// interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

const defaultMaxTokens = 4096

// Model implements llm.Provider for OpenAI's GPT models.
type Model struct {
	client    *openai.Client
	modelName string
	maxTokens int64
	log       logger.Logger
}

// New creates a new OpenAI provider instance. Extra request options, such as
// a custom base URL or retry policy, are applied to every call.
func New(apiKey, modelName string, log logger.Logger, opts ...option.RequestOption) (*Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(clientOpts...)

	return &Model{
		client:    &client,
		modelName: modelName,
		maxTokens: defaultMaxTokens,
		log:       log.WithFields(logger.StringField("component", "openai_model"), logger.StringField("model", modelName)),
	}, nil
}

// Name returns the model name.
func (o *Model) Name() string {
	return o.modelName
}

// GenerateResponse implements llm.Provider.
func (o *Model) GenerateResponse(ctx context.Context, messages []llm.Message, systemPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:     o.modelName,
		MaxTokens: openai.Int(o.maxTokens),
		Messages:  transformMessages(messages, systemPrompt),
	}

	o.log.Debug("Sending request to openai", logger.IntField("messages_count", len(messages)))

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// transformMessages converts provider-neutral messages to OpenAI params,
// prepending the system prompt when present. Unknown roles are treated as
// user turns.
func transformMessages(messages []llm.Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		if m.Role == llm.RoleAssistant {
			out = append(out, openai.AssistantMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

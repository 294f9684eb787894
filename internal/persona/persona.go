// Package persona loads bot persona definitions from per-bot YAML files.
// Each bot lives in its own directory: <bots_dir>/<bot_id>/config.yaml.
package persona

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// AISettings selects and tunes the completion backend for a persona.
type AISettings struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Personality captures the character traits blended into the system prompt.
type Personality struct {
	Character    string   `yaml:"character"`
	Traits       []string `yaml:"traits"`
	Catchphrases []string `yaml:"catchphrases"`
	Likes        []string `yaml:"likes"`
	Dislikes     []string `yaml:"dislikes"`
}

// Messages holds the canned transport-level replies.
type Messages struct {
	Welcome string `yaml:"welcome"`
	Help    string `yaml:"help"`
}

// Persona is one bot's full definition.
type Persona struct {
	ID          string      `yaml:"-"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Language    string      `yaml:"language"`
	Prompt      string      `yaml:"prompt"`
	AI          AISettings  `yaml:"ai"`
	Personality Personality `yaml:"personality"`
	Messages    Messages    `yaml:"messages"`
}

// Validate checks the persona for usability.
func (p *Persona) Validate() error {
	var result *multierror.Error
	if p.Name == "" {
		result = multierror.Append(result, fmt.Errorf("persona %s: name is required", p.ID))
	}
	if p.AI.Provider != "" && p.AI.Provider != "anthropic" && p.AI.Provider != "openai" {
		result = multierror.Append(result, fmt.Errorf("persona %s: unknown provider %q", p.ID, p.AI.Provider))
	}
	return result.ErrorOrNil()
}

// SystemPrompt renders the prompt sent to the model. A custom prompt wins;
// otherwise one is assembled from the persona's description and personality.
func (p *Persona) SystemPrompt() string {
	if p.Prompt != "" {
		return p.Prompt
	}

	prompt := fmt.Sprintf("你是一个名叫%s的智能助手。%s", p.Name, p.Description)
	if p.Personality.Character != "" {
		prompt += "\n\n性格设定：" + p.Personality.Character
	}
	if len(p.Personality.Traits) > 0 {
		prompt += "\n性格特点："
		for i, trait := range p.Personality.Traits {
			if i > 0 {
				prompt += "、"
			}
			prompt += trait
		}
	}
	if len(p.Personality.Catchphrases) > 0 {
		prompt += "\n口头禅："
		for i, phrase := range p.Personality.Catchphrases {
			if i > 0 {
				prompt += "、"
			}
			prompt += phrase
		}
	}
	return prompt
}

package config

// LLM provider constants
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// LLMConfig holds LLM provider selection configuration
type LLMConfig struct {
	// DefaultProvider is used for personas that do not name a provider:
	// "anthropic" or "openai"
	DefaultProvider string `env:"LLM_DEFAULT_PROVIDER" yaml:"default_provider" default:"anthropic"`
	// RefineMemory routes memory analysis through the LLM for a second
	// opinion after the rule-based pass
	RefineMemory bool `env:"LLM_REFINE_MEMORY" yaml:"refine_memory"`
}
